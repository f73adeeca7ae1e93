package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nexus-agents/nexus/internal/domain"
	"github.com/spf13/cobra"
)

func newEventCmd(app *app) *cobra.Command {
	var interaction int
	var actor string
	var asText bool

	cmd := &cobra.Command{
		Use:   "event <type> [content]",
		Short: "Append one event to the shared log",
		Long:  "Append one event to the shared log. Content is parsed as JSON unless --text is given; omit it (or pass -) to read content from stdin. Interaction 0 assigns the next free key.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventType := args[0]

			content, err := readEventContent(cmd, args)
			if err != nil {
				return err
			}

			var event domain.Event
			if asText {
				event, err = app.events.AppendText(cmd.Context(), interaction, actor, eventType, content)
			} else {
				event, err = app.events.Append(cmd.Context(), interaction, actor, eventType, content)
			}

			if errors.Is(err, domain.ErrLockTimeout) {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: log lock held, event buffered offline: %v\n", err)
				return err
			}
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "recorded %s event in interaction %d\n", event.Type, event.Interaction)
			return err
		},
	}

	cmd.Flags().IntVar(&interaction, "interaction", 0, "Interaction key (0 assigns the next free key)")
	cmd.Flags().StringVar(&actor, "actor", "", "Acting agent ID")
	cmd.Flags().BoolVar(&asText, "text", false, "Treat content as a literal string instead of JSON")

	return cmd
}

func readEventContent(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 2 && args[1] != "-" {
		return args[1], nil
	}

	raw, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read content from stdin: %w", err)
	}

	return strings.TrimRight(string(raw), "\n"), nil
}
