package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/proclens/proclens/pkg/core"
	"github.com/proclens/proclens/pkg/tui"
	"github.com/proclens/proclens/pkg/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-classify an event log whenever it changes",
	Long: `Watch an event log file and re-run classification after every
change, printing the label and whether it changed since the last pass.

Examples:
  proclens watch -i events.xes
  proclens watch -i events.csv --temporal-threshold 0.9`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&inputFile, "input", "i", "", "Event log path to watch (required)")
	watchCmd.Flags().Float64Var(&temporalThreshold, "temporal-threshold", 1.0, "Ratio of traces that must exhibit a temporal relation [0.0-1.0]")
	watchCmd.Flags().Float64Var(&existentialThreshold, "existential-threshold", 1.0, "Ratio of traces that must exhibit an existential relation [0.0-1.0]")

	watchCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	temporal, existential := effectiveThresholds(cmd)
	engine := core.NewEngine(core.WithRules(cfg.RuleSet()))
	rc := watch.NewReclassifier(engine, parserConfig(), temporal, existential)

	tui.PrintHeader(version)

	err := watch.RunLoop(ctx, inputFile, rc,
		func(u watch.Update) {
			tui.PrintWatchUpdate(u.Path, u.Result.Label, u.Changed, u.At)
		},
		func(err error) {
			tui.PrintError(err)
		})

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
