package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devagent/orchestrator/config"
	"github.com/devagent/orchestrator/qa"
)

var qaCmd = &cobra.Command{
	Use:   "qa",
	Short: "Run the QA Loop standalone against an already-implemented spec directory",
	RunE:  runQA,
}

func runQA(cmd *cobra.Command, _ []string) error {
	opts, err := readRunOptions(cmd)
	if err != nil {
		return err
	}

	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	notifyCancel(ctx, cancel)

	h, cleanup, err := newHost(ctx, settings, opts.project, opts.specDir, opts)
	if err != nil {
		return fmt.Errorf("wire host: %w", err)
	}
	defer cleanup()

	loop := qa.New(qa.Options{Dir: h.Dir, Runner: h})
	outcome := loop.Run(ctx)

	fmt.Printf("qa loop finished: kind=%s approved=%t iterations=%d duration_ms=%d\n",
		outcome.Kind, outcome.Approved, outcome.TotalIterations, outcome.DurationMs)
	if !outcome.Approved {
		if outcome.Error != nil {
			return outcome.Error
		}
		return fmt.Errorf("qa loop did not approve: %s", outcome.Kind)
	}
	return nil
}
