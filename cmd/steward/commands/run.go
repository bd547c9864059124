package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/stratadata/steward/agent"
	"github.com/stratadata/steward/catalog"
	"github.com/stratadata/steward/errors"
	"github.com/stratadata/steward/eventlog"
	"github.com/stratadata/steward/learning"
	"github.com/stratadata/steward/logger"
	"github.com/stratadata/steward/ontology"
	"github.com/stratadata/steward/semantic"
)

// RunCmd runs the daily governance loop.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily governance loop",
	Long: `Run the governance agent day by day.

Each day the agent detects rule breaches, scores every business term,
selects one investigation focus, traces its lineage, analyzes the
transformations, detects policy gaps and recommends a remediation. The
outcome of each recommendation is measured the following day and folded
back into the agent's learning state.

An interrupted run resumes after the last fully completed day; a partially
written day is discarded and re-run. Use --reset to start over.`,
	RunE: runLoop,
}

var (
	runDaysFlag  int
	runResetFlag bool
)

func init() {
	RunCmd.Flags().IntVar(&runDaysFlag, "days", 0, "Run through this day number (default: configured simulation days)")
	RunCmd.Flags().BoolVar(&runResetFlag, "reset", false, "Clear the event log and learning state before running")
}

func runLoop(cmd *cobra.Command, args []string) error {
	cfg, conn, err := openGoverned()
	if err != nil {
		return err
	}
	defer conn.Close()

	days := runDaysFlag
	if days == 0 {
		days = cfg.Simulation.Days
	}

	// Seed through the requested horizon, so --days beyond the configured
	// window still has scores to read for every day it runs.
	if err := catalog.Seed(conn, cfg.Simulation.StartDate, seedHorizon(days, cfg.Simulation.Days), logger.Logger); err != nil {
		return errors.Wrap(err, "seed governance catalog")
	}

	registry, err := ontology.Load(cfg.Ontology.Path)
	if err != nil {
		return errors.Wrap(err, "load ontology")
	}

	catalogStore := catalog.NewStore(conn, logger.Logger)
	events := eventlog.NewStore(conn, logger.Logger)
	snapshots := learning.NewSnapshotStore(conn, logger.Logger)
	interpreter := semantic.New(cfg.Semantic, logger.Logger)

	loop, err := agent.New(catalogStore, events, snapshots, registry, interpreter, cfg, logger.Logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pterm.DefaultHeader.Printf("Steward governance run: %d days", days)
	result, err := loop.Run(ctx, days, runResetFlag)
	if err != nil {
		return err
	}

	for _, day := range result.Summaries {
		printDaySummary(day)
	}
	printRunReport(result)
	return nil
}

func seedHorizon(requested, configured int) int {
	if requested > configured {
		return requested
	}
	return configured
}

func printDaySummary(day agent.DaySummary) {
	focus := fmt.Sprintf("%s (%s)", day.FocusTermName, day.FocusTermID)
	line := fmt.Sprintf("Day %2d %s  focus=%s risk=%.4f breaches=%d gaps=%d",
		day.Day, day.Date, focus, day.RiskScore, day.BreachCount, day.GapCount)

	switch {
	case day.GapCount > 0:
		pterm.Warning.Println(line)
	default:
		pterm.Info.Println(line)
	}
	if day.Recommendation != "" {
		pterm.Printf("        %s %s\n", pterm.Gray("→ recommended:"), pterm.Yellow(day.Recommendation))
	}
	if day.OutcomeDelta != nil {
		direction := pterm.LightGreen
		if *day.OutcomeDelta <= 0 {
			direction = pterm.LightRed
		}
		pterm.Printf("        %s %s\n", pterm.Gray("→ outcome delta:"),
			direction(fmt.Sprintf("%+.4f", *day.OutcomeDelta)))
	}
}

func printRunReport(result *agent.RunResult) {
	pterm.Println()
	if len(result.Summaries) == 0 {
		pterm.Info.Printf("Nothing to do: all %d days already completed\n", result.EndDay)
		pterm.Printf("Event log holds %d events\n", result.TotalEvents)
		return
	}
	pterm.Success.Printf("Run %s completed days %d-%d\n",
		result.RunID[:8], result.StartDay, result.EndDay)
	pterm.Printf("Event log holds %d events\n", result.TotalEvents)
}
