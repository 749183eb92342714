package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the drop command
	dropTables    []string
	dropAllTables bool
	dropAllViews  bool
	dropDatabase  string
	yesConfirm    bool
)

// dropCmd removes tables or views.
var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop tables or views",
	Long: `Drops the named tables, or every table or view of the database.

Examples:
  # Drop two tables if they exist
  schema-manager drop --tables Product,Customer

  # Drop everything (views first), non-interactive
  schema-manager drop --all-views --all-tables --yes`,
	RunE: runDrop,
}

func init() {
	dropCmd.Flags().StringSliceVar(&dropTables, "tables", nil, "Tables to drop if present")
	dropCmd.Flags().BoolVar(&dropAllTables, "all-tables", false, "Drop every table")
	dropCmd.Flags().BoolVar(&dropAllViews, "all-views", false, "Drop every view")
	dropCmd.Flags().StringVar(&dropDatabase, "database", "", "Database name, overriding DATABASE_NAME")
	dropCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm destructive actions (non-interactive)")

	RootCmd.AddCommand(dropCmd)
}

func runDrop(cmd *cobra.Command, args []string) error {
	if len(dropTables) == 0 && !dropAllTables && !dropAllViews {
		return errors.New("nothing to drop: use --tables, --all-tables or --all-views")
	}

	e, err := loadEnv(dropDatabase)
	if err != nil {
		return err
	}
	defer e.close()

	if (dropAllTables || dropAllViews) && !confirmDestructiveAction() {
		e.logger.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	mgr, err := e.manager(cmd.Context())
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	// Views go first so tables they select from can be dropped.
	if dropAllViews {
		if err := mgr.DropAllViews(ctx); err != nil {
			return fmt.Errorf("failed to drop views: %w", err)
		}
		e.logger.Info("Dropped all views")
	}
	if len(dropTables) > 0 {
		if err := mgr.DropTablesIfPresent(ctx, dropTables); err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}
		e.logger.Info("Dropped tables", zap.Strings("tables", dropTables))
	}
	if dropAllTables {
		if err := mgr.DropAllTables(ctx); err != nil {
			return fmt.Errorf("failed to drop tables: %w", err)
		}
		e.logger.Info("Dropped all tables")
	}
	return nil
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction() bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to confirm destructive actions: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(response)
	return response == "yes"
}
