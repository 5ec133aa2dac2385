package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devagent/orchestrator/build"
	"github.com/devagent/orchestrator/config"
	"github.com/devagent/orchestrator/qa"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run the Build Orchestrator: plan, implement, then QA the current spec",
	RunE:  runBuild,
}

func runBuild(cmd *cobra.Command, _ []string) error {
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

	qaLoop := qa.New(qa.Options{Dir: h.Dir, Runner: h})
	orch := build.New(build.Options{
		Dir:     h.Dir,
		Planner: h,
		Coder:   h,
		QALoop:  qaLoop,
	})

	outcome := orch.Run(ctx)
	fmt.Printf("build finished: kind=%s success=%t duration_ms=%d\n", outcome.Kind, outcome.Success, outcome.DurationMs)
	if len(outcome.StuckSubtasks) > 0 {
		fmt.Printf("stuck subtasks: %v\n", outcome.StuckSubtasks)
	}
	if !outcome.Success {
		if outcome.Error != nil {
			return outcome.Error
		}
		return fmt.Errorf("build did not succeed: %s", outcome.Kind)
	}
	return nil
}

// notifyCancel cancels ctx's parent cancel func on SIGINT/SIGTERM so a
// running orchestrator unwinds cleanly instead of the process dying
// mid-session.
func notifyCancel(ctx context.Context, cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "received interrupt, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()
}
