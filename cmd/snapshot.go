package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nexus-agents/nexus/internal/application"
	"github.com/spf13/cobra"
)

func newSnapshotCmd(app *app) *cobra.Command {
	var asJSON bool
	var quiet bool

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Regenerate the snapshot artifacts from the event log",
		Long:  "Rebuild the recent-communication, archive, and structured snapshot files from the full event log. Prior artifacts are restored unchanged if any step fails.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var result application.SnapshotResult

			run := func(ctx context.Context) error {
				var err error
				result, err = app.snapshots.Regenerate(ctx)
				return err
			}

			if asJSON || quiet {
				if err := run(cmd.Context()); err != nil {
					return err
				}
			} else {
				if err := runRegenerateSpinner(cmd.Context(), cmd.ErrOrStderr(), run); err != nil {
					return err
				}
			}

			return writeSnapshotResult(cmd, result, asJSON, quiet)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Suppress output on success")

	return cmd
}

func writeSnapshotResult(cmd *cobra.Command, result application.SnapshotResult, asJSON, quiet bool) error {
	if quiet {
		return nil
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	_, err := fmt.Fprintf(cmd.OutOrStdout(),
		"snapshot rebuilt: %d events, %d recent interactions, %d archived, %d malformed lines skipped\n",
		result.EventCount, len(result.RecentInteractions), len(result.ArchivedInteractions), result.SkippedLines)
	return err
}
