package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
)

func newInitCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the event log and snapshot artifacts",
		Long:  "Create an empty event log if none exists and generate the initial snapshot artifacts. Safe to run repeatedly; an existing log is left untouched.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			created, err := ensureLogFile(app.logPath)
			if err != nil {
				return err
			}

			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", app.logPath)
			}

			if _, err := app.snapshots.Regenerate(cmd.Context()); err != nil {
				return err
			}

			for _, path := range app.artifactPaths {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			}

			return nil
		},
	}
}

func ensureLogFile(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat event log: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("create event log: %w", err)
	}

	return true, file.Close()
}
