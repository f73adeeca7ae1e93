package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/nexus-agents/nexus/internal/adapters/watch"
	"github.com/nexus-agents/nexus/internal/domain"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newWatchCmd(app *app) *cobra.Command {
	var heartbeatAs string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the event log and regenerate snapshots on change",
		Long:  "Watch the event log for appends and regenerate the snapshot artifacts after each debounced burst of writes. Runs until interrupted. With --heartbeat-as, also records a periodic heartbeat for the named agent.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runWatch(ctx, cmd, app, heartbeatAs)
		},
	}

	cmd.Flags().StringVar(&heartbeatAs, "heartbeat-as", "", "Agent ID to emit periodic heartbeats for")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, app *app, heartbeatAs string) error {
	onChange := func(changeCtx context.Context) {
		result, err := app.snapshots.Regenerate(changeCtx)
		if err != nil {
			app.logger.Error("snapshot regeneration failed", "error", err)
			return
		}

		fmt.Fprintf(cmd.OutOrStdout(), "snapshot rebuilt: %d events, %d malformed lines skipped\n",
			result.EventCount, result.SkippedLines)
	}

	watcher, err := watch.New(app.logPath, app.watchDebounce, onChange, app.logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "watching %s\n", app.logPath)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return watcher.Run(groupCtx)
	})

	if heartbeatAs != "" {
		group.Go(func() error {
			return runHeartbeatLoop(groupCtx, app, domain.AgentID(heartbeatAs))
		})
	}

	err = group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func runHeartbeatLoop(ctx context.Context, app *app, id domain.AgentID) error {
	tick := app.heartbeatTick
	if tick <= 0 {
		tick = time.Minute
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := app.agents.Heartbeat(ctx, id); err != nil {
				app.logger.Error("heartbeat failed", "agent", id, "error", err)
			}
		}
	}
}
