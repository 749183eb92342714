package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"schema-manager/core/reconcile"
	"schema-manager/core/schema"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the mutate command
	mutateSchemaFile string
	mutateTruncation string
	mutateDatabase   string
	mutateJSON       bool
)

// mutateCmd brings a database in line with a schema file.
var mutateCmd = &cobra.Command{
	Use:   "mutate",
	Short: "Make a database support a schema",
	Long: `Deploys, redeploys or empties tables and views until the database supports
the schema described in a YAML file. Every table is left empty.

Examples:
  # Reuse tables that are already empty
  schema-manager mutate --schema schema.yaml

  # Empty every table even if nothing changed
  schema-manager mutate --schema schema.yaml --truncation always`,
	RunE: runMutate,
}

func init() {
	mutateCmd.Flags().StringVar(&mutateSchemaFile, "schema", "", "Path to the schema file (required)")
	mutateCmd.Flags().StringVar(&mutateTruncation, "truncation", "", "Truncation behavior: always or only_on_table_change (default from config)")
	mutateCmd.Flags().StringVar(&mutateDatabase, "database", "", "Database name, overriding DATABASE_NAME")
	mutateCmd.Flags().BoolVar(&mutateJSON, "json", false, "Print the result as JSON")
	_ = mutateCmd.MarkFlagRequired("schema")

	RootCmd.AddCommand(mutateCmd)
}

func runMutate(cmd *cobra.Command, args []string) error {
	target, err := schema.LoadFile(mutateSchemaFile)
	if err != nil {
		return err
	}

	e, err := loadEnv(mutateDatabase)
	if err != nil {
		return err
	}
	defer e.close()

	behavior, err := e.cfg.Manager.Truncation()
	if err != nil {
		return err
	}
	if mutateTruncation != "" {
		if behavior, err = reconcile.ParseTruncationBehavior(mutateTruncation); err != nil {
			return err
		}
	}

	mgr, err := e.manager(cmd.Context())
	if err != nil {
		return err
	}

	e.logger.Info("Supporting schema",
		zap.String("file", mutateSchemaFile),
		zap.String("truncation", behavior.String()),
		zap.Int("tables", len(target.Tables)),
		zap.Int("views", len(target.Views)))

	result, err := mgr.MutateToSupportSchema(cmd.Context(), target, behavior)
	if err != nil {
		return fmt.Errorf("failed to support schema: %w", err)
	}

	if mutateJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printMutationReport(e.logger, result)
	return nil
}

// printMutationReport prints a mutation result using logger.
func printMutationReport(l *zap.Logger, result *reconcile.Result) {
	if !result.Changed() {
		l.Info("Database already supports the schema")
		return
	}
	l.Info("Mutation report",
		zap.Int("statements", len(result.Statements)),
		zap.Strings("tables_deployed", result.TablesDeployed),
		zap.Strings("tables_dropped", result.TablesDropped),
		zap.Strings("tables_truncated", result.TablesTruncated),
		zap.Strings("views_dropped", result.ViewsDropped),
		zap.Strings("views_deployed", result.ViewsDeployed),
	)
}
