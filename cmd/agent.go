package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	agentsrender "github.com/nexus-agents/nexus/internal/adapters/render/agents"
	"github.com/nexus-agents/nexus/internal/domain"
	"github.com/spf13/cobra"
)

func newAgentCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage registered agents",
	}

	cmd.AddCommand(
		newAgentRegisterCmd(app),
		newAgentStatusCmd(app),
		newAgentHeartbeatCmd(app),
		newAgentListCmd(app),
	)

	return cmd
}

func newAgentRegisterCmd(app *app) *cobra.Command {
	var agentType string
	var description string

	cmd := &cobra.Command{
		Use:   "register <agent-id>",
		Short: "Register an agent and record its session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := app.agents.Register(cmd.Context(), domain.AgentID(args[0]), agentType, description)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "registered %s (session %s)\n", agent.ID, agent.SessionID)
			return err
		},
	}

	cmd.Flags().StringVar(&agentType, "type", "", "Agent type label")
	cmd.Flags().StringVar(&description, "description", "", "Free-form agent description")

	return cmd
}

func newAgentStatusCmd(app *app) *cobra.Command {
	var detail string

	cmd := &cobra.Command{
		Use:   "status <agent-id> <active|idle|inactive>",
		Short: "Set an agent's working state",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := domain.ParseAgentState(args[1])
			if err != nil {
				return err
			}

			agent, err := app.agents.SetStatus(cmd.Context(), domain.AgentID(args[0]), state, detail)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", agent.ID, agent.State)
			return err
		},
	}

	cmd.Flags().StringVar(&detail, "detail", "", "What the agent is working on")

	return cmd
}

func newAgentHeartbeatCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "heartbeat <agent-id>",
		Short: "Record that an agent is still alive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := app.agents.Heartbeat(cmd.Context(), domain.AgentID(args[0]))
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "heartbeat recorded for %s at %s\n",
				agent.ID, agent.LastSeen.Format(time.RFC3339))
			return err
		},
	}
}

func newAgentListCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			agents, err := app.agents.List(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(agents)
			}

			rendered := app.agentRenderer(agents, agentsrender.RenderOptions{
				Now:        app.now(),
				StaleAfter: app.staleAfter,
			})

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}
