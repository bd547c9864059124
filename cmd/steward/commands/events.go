package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/stratadata/steward/errors"
	"github.com/stratadata/steward/eventlog"
	"github.com/stratadata/steward/logger"
)

// EventsCmd inspects the event log.
var EventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the governance event log",
	Long: `List events from the governance event log.

Examples:
  steward events                              # Most recent events
  steward events --type rule_breached         # Only breach events
  steward events --day 12                     # One day's full cycle
  steward events --type policy_gap_detected --limit 5`,
	RunE: runEvents,
}

var (
	eventsTypeFlag  string
	eventsDayFlag   int
	eventsLimitFlag int
)

func init() {
	EventsCmd.Flags().StringVar(&eventsTypeFlag, "type", "", "Filter by event type")
	EventsCmd.Flags().IntVar(&eventsDayFlag, "day", 0, "Filter by day number")
	EventsCmd.Flags().IntVar(&eventsLimitFlag, "limit", 50, "Maximum number of events to show")
}

func runEvents(cmd *cobra.Command, args []string) error {
	_, conn, err := openGoverned()
	if err != nil {
		return err
	}
	defer conn.Close()

	opts := eventlog.ListOptions{Day: eventsDayFlag, Limit: eventsLimitFlag}
	if eventsTypeFlag != "" {
		opts.Type = eventlog.Type(eventsTypeFlag)
		if !opts.Type.Valid() {
			return errors.Newf("unknown event type %q", eventsTypeFlag)
		}
	}

	events, err := eventlog.NewStore(conn, logger.Logger).List(opts)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		pterm.Info.Println("No events match")
		return nil
	}

	for _, event := range events {
		fmt.Printf("%6d  day %2d  %-24s %-20s %s\n",
			event.EventID, event.Day, event.Type, event.EntityID, event.EntityName)
		if event.Explanation != "" {
			pterm.Printf("        %s\n", pterm.Gray(event.Explanation))
		}
	}
	pterm.Printf("\n%d events\n", len(events))
	return nil
}
