package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stratadata/steward/cmd/steward/commands"
	"github.com/stratadata/steward/logger"
)

var rootCmd = &cobra.Command{
	Use:   "steward",
	Short: "Steward - autonomous data governance agent",
	Long: `Steward - a closed-loop data governance agent.

Steward watches data quality scores against governance rules, investigates
the riskiest business term each day, traces its lineage, statically analyzes
the transformations that produce it, detects policy gaps against the
ontology and recommends remediations. Every decision is appended to an
event log, and the agent learns from measured outcomes.

Available commands:
  run     - Run the daily governance loop
  serve   - Start the read-only query API
  db      - Manage the governance database
  events  - Inspect the event log
  version - Show version information

Examples:
  steward run --days 30 --reset   # Fresh 30-day governance run
  steward run --days 30           # Resume an interrupted run
  steward serve                   # Serve the event log for dashboards
  steward events --type policy_gap_detected`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON instead of console output")

	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.EventsCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
