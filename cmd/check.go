package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"schema-manager/core/schema"
	"schema-manager/feature/integrity"
	"schema-manager/feature/integrity/checks"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the check command
	checkSchemaFile string
	checkDatabase   string
	checkJSON       bool
	checkStrict     bool
)

// errDrift is returned by check --strict when the database differs.
var errDrift = errors.New("database does not match the schema")

// checkCmd compares a database with a schema file without changing it.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Compare a database with a schema",
	Long: `Reports tables that are missing or differ from the schema file, views that
are missing, and objects the schema does not declare. Nothing is changed.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkSchemaFile, "schema", "", "Path to the schema file (required)")
	checkCmd.Flags().StringVar(&checkDatabase, "database", "", "Database name, overriding DATABASE_NAME")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Print the report as JSON")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Exit with an error when the database differs")
	_ = checkCmd.MarkFlagRequired("schema")

	RootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	target, err := schema.LoadFile(checkSchemaFile)
	if err != nil {
		return err
	}

	e, err := loadEnv(checkDatabase)
	if err != nil {
		return err
	}
	defer e.close()

	svc := integrity.NewService(e.db, e.dbCfg.Identity(), e.dialect, e.cfg.Manager.Names(), nil, e.cfg.Storage, e.logger)
	report, err := svc.CheckSchema(cmd.Context(), target)
	if err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}

	if checkJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printCheckReport(e.logger, report)
	}

	if checkStrict && !report.Matched {
		return errDrift
	}
	return nil
}

// printCheckReport prints an integrity report using logger.
func printCheckReport(l *zap.Logger, report *checks.SchemaReport) {
	names := make([]string, 0, len(report.Tables))
	for name := range report.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		t := report.Tables[name]
		if t.Status == checks.StatusOK {
			continue
		}
		l.Warn("Table differs",
			zap.String("table", name),
			zap.String("status", t.Status),
			zap.Strings("differences", t.Differences))
	}

	l.Info("Integrity report",
		zap.Bool("matched", report.Matched),
		zap.Int("tables", len(report.Tables)),
		zap.Strings("missing_views", report.MissingViews),
		zap.Strings("extra_tables", report.ExtraTables),
		zap.Strings("extra_views", report.ExtraViews),
	)
}
