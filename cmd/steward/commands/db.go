package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/stratadata/steward/catalog"
	"github.com/stratadata/steward/eventlog"
	"github.com/stratadata/steward/logger"
)

// DbCmd groups database management subcommands.
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the governance database",
	Long: `Manage the governance database.

Examples:
  steward db migrate   # Apply pending schema migrations
  steward db stats     # Show catalog and event log statistics`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runDbMigrate,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog and event log statistics",
	RunE:  runDbStats,
}

func init() {
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbStatsCmd)
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	cfg, conn, err := openGoverned()
	if err != nil {
		return err
	}
	defer conn.Close()

	// openGoverned already migrated; reaching here means the schema is current
	pterm.Success.Printf("Database %s is up to date\n", cfg.Database.Path)
	return nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	cfg, conn, err := openGoverned()
	if err != nil {
		return err
	}
	defer conn.Close()

	store := catalog.NewStore(conn, logger.Logger)
	events := eventlog.NewStore(conn, logger.Logger)

	terms, err := store.Terms()
	if err != nil {
		return err
	}
	total, err := events.Count()
	if err != nil {
		return err
	}
	lastDay, err := events.LastCompletedDay()
	if err != nil {
		return err
	}
	byType, err := events.CountByType()
	if err != nil {
		return err
	}

	pterm.DefaultHeader.Println("Governance Database Statistics")
	fmt.Printf("Database Path:      %s\n", cfg.Database.Path)
	fmt.Printf("Business Terms:     %d\n", len(terms))
	fmt.Printf("Total Events:       %d\n", total)
	fmt.Printf("Last Completed Day: %d\n", lastDay)
	fmt.Println()

	for _, term := range terms {
		fmt.Printf("  %-6s %-20s criticality=%d status=%s\n",
			term.ID, term.Name, term.Criticality, term.Status)
	}
	fmt.Println()

	if len(byType) > 0 {
		fmt.Println("Events by type:")
		for _, eventType := range eventlog.AllTypes {
			if n, ok := byType[eventType]; ok {
				fmt.Printf("  %-24s %d\n", eventType, n)
			}
		}
	}
	return nil
}
