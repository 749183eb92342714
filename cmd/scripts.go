package cmd

import (
	"errors"
	"fmt"

	"schema-manager/core/config"
	"schema-manager/core/database"
	"schema-manager/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the scripts commands
	scriptsDatabase string
	scriptsAll      bool
)

// scriptsCmd is the parent command for the script archive.
var scriptsCmd = &cobra.Command{
	Use:   "scripts",
	Short: "Browse archived scripts",
	Long:  `Lists and prints the scripts executed against test databases, when STORAGE_ENABLED is set.`,
}

var scriptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived scripts",
	RunE:  runScriptsList,
}

var scriptsShowCmd = &cobra.Command{
	Use:   "show KEY",
	Short: "Print an archived script",
	Args:  cobra.ExactArgs(1),
	RunE:  runScriptsShow,
}

func init() {
	scriptsListCmd.Flags().StringVar(&scriptsDatabase, "database", "", "Database name, overriding DATABASE_NAME")
	scriptsListCmd.Flags().BoolVar(&scriptsAll, "all", false, "List scripts of every database")

	scriptsCmd.AddCommand(scriptsListCmd)
	scriptsCmd.AddCommand(scriptsShowCmd)
	RootCmd.AddCommand(scriptsCmd)
}

func loadArchiveConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if !cfg.Storage.Enabled {
		return nil, nil, errors.New("script archive is disabled (set STORAGE_ENABLED=true)")
	}
	return cfg, l, nil
}

func runScriptsList(cmd *cobra.Command, args []string) error {
	cfg, l, err := loadArchiveConfig()
	if err != nil {
		return err
	}
	defer l.Sync()

	_, a, err := openStorage(cmd.Context(), cfg.Storage)
	if err != nil {
		return err
	}

	var identity database.Identity
	if !scriptsAll {
		dbCfg := cfg.Database
		if scriptsDatabase != "" {
			dbCfg = dbCfg.WithName(scriptsDatabase)
		}
		identity = dbCfg.Identity()
	}

	scripts, err := a.List(cmd.Context(), identity)
	if err != nil {
		return err
	}
	for _, s := range scripts {
		fmt.Printf("%s\t%d\t%s\n", s.LastModified.Format("2006-01-02 15:04:05"), s.Size, s.Key)
	}
	l.Info("Archived scripts", zap.Int("count", len(scripts)))
	return nil
}

func runScriptsShow(cmd *cobra.Command, args []string) error {
	cfg, l, err := loadArchiveConfig()
	if err != nil {
		return err
	}
	defer l.Sync()

	_, a, err := openStorage(cmd.Context(), cfg.Storage)
	if err != nil {
		return err
	}
	body, err := a.Fetch(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Print(body)
	return nil
}
