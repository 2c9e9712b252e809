// Command agentctl manages agents and flows on a running multi-agent manager.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"multiagent-manager/backend/internal/client"
	"multiagent-manager/backend/internal/state"
	"multiagent-manager/backend/pkg/models"
)

func main() {
	if err := newRootCmd(os.Stdout, nil).Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	serverURL string
	output    string
	out       io.Writer
	api       state.API
	ctl       *state.Controller
}

func (a *app) renderer() renderer {
	return renderer{w: a.out, json: a.output == "json"}
}

// newRootCmd builds the command tree. api overrides the HTTP client, for tests.
func newRootCmd(out io.Writer, api state.API) *cobra.Command {
	a := &app{out: out, api: api}

	root := &cobra.Command{
		Use:           "agentctl",
		Short:         "Manage agents and flows on a multi-agent manager server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.output != "text" && a.output != "json" {
				return fmt.Errorf("unsupported output %q (text|json)", a.output)
			}
			if a.api == nil {
				a.api = client.New(a.serverURL)
			}
			a.ctl = state.NewController(a.api)
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(out)
	root.PersistentFlags().StringVarP(&a.serverURL, "server", "s", envOr("AGENTCTL_SERVER", "http://localhost:8080"), "Server base URL")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "Output format: text or json")

	root.AddCommand(a.agentsCmd(), a.flowsCmd(), a.invokeCmd(), a.toolsCmd())

	// Errors are rendered once here so step context survives in both formats.
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error { return err })
	wrapRunE(root, a)
	return root
}

func wrapRunE(cmd *cobra.Command, a *app) {
	for _, sub := range cmd.Commands() {
		wrapRunE(sub, a)
	}
	if cmd.RunE == nil {
		return
	}
	run := cmd.RunE
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		err := run(cmd, args)
		if err != nil {
			a.renderer().failure(err)
		}
		return err
	}
}

func (a *app) agentsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "agents", Short: "Manage agents"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			agents, err := a.ctl.RefreshAgents(cmd.Context())
			if err != nil {
				return err
			}
			return a.renderer().agents(agents)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show one agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agents, err := a.ctl.RefreshAgents(cmd.Context())
			if err != nil {
				return err
			}
			for _, agent := range agents {
				if agent.ID == args[0] {
					return a.renderer().agent(&agent)
				}
			}
			return fmt.Errorf("agent %q not found", args[0])
		},
	})

	var input models.AgentInput
	addAgentFlags := func(c *cobra.Command) {
		c.Flags().StringVar(&input.Name, "name", "", "Agent name")
		c.Flags().StringVar(&input.SystemPrompt, "system-prompt", "", "System prompt")
		c.Flags().StringSliceVar(&input.ToolsEnabled, "tools", nil, "Comma separated tool names")
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create an agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := a.ctl.CreateAgent(cmd.Context(), input)
			if err != nil {
				return err
			}
			return a.renderer().agent(agent)
		},
	}
	addAgentFlags(create)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace an agent's name, system prompt and tools",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := a.ctl.UpdateAgent(cmd.Context(), args[0], input)
			if err != nil {
				return err
			}
			return a.renderer().agent(agent)
		},
	}
	addAgentFlags(update)

	cmd.AddCommand(create, update, &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an agent. Flows that use it fail on their next run.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ctl.DeleteAgent(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.renderer().deleted("agent", args[0])
		},
	})
	return cmd
}

func (a *app) flowsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "flows", Short: "Manage flows"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List flows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flows, err := a.ctl.RefreshFlows(cmd.Context())
			if err != nil {
				return err
			}
			a.loadAgentNames(cmd)
			return a.renderer().flows(flows, a.ctl.AgentName)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show one flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flows, err := a.ctl.RefreshFlows(cmd.Context())
			if err != nil {
				return err
			}
			a.loadAgentNames(cmd)
			for _, f := range flows {
				if f.ID == args[0] {
					return a.renderer().flow(&f, a.ctl.AgentName)
				}
			}
			return fmt.Errorf("flow %q not found", args[0])
		},
	})

	var (
		name        string
		description string
		agentIDs    []string
	)
	input := func(cmd *cobra.Command) models.FlowInput {
		in := models.FlowInput{Name: name, AgentIDs: agentIDs}
		if cmd.Flags().Changed("description") {
			in.Description = &description
		}
		return in
	}
	addFlowFlags := func(c *cobra.Command) {
		c.Flags().StringVar(&name, "name", "", "Flow name")
		c.Flags().StringVar(&description, "description", "", "Flow description")
		c.Flags().StringSliceVar(&agentIDs, "agents", nil, "Agent ids in pipeline order, comma separated")
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a flow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flow, err := a.ctl.CreateFlow(cmd.Context(), input(cmd))
			if err != nil {
				return err
			}
			a.loadAgentNames(cmd)
			return a.renderer().flow(flow, a.ctl.AgentName)
		},
	}
	addFlowFlags(create)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a flow's name, description and agents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flow, err := a.ctl.UpdateFlow(cmd.Context(), args[0], input(cmd))
			if err != nil {
				return err
			}
			a.loadAgentNames(cmd)
			return a.renderer().flow(flow, a.ctl.AgentName)
		},
	}
	addFlowFlags(update)

	cmd.AddCommand(create, update, &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ctl.DeleteFlow(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.renderer().deleted("flow", args[0])
		},
	})
	return cmd
}

func (a *app) invokeCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "invoke", Short: "Invoke an agent or a flow"}

	var agentID, systemPrompt string
	agent := &cobra.Command{
		Use:   "agent <user prompt>",
		Short: "Invoke one agent, or an ad-hoc system prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := models.AgentInvokeRequest{UserPrompt: strings.Join(args, " ")}
			if cmd.Flags().Changed("agent") {
				req.AgentID = &agentID
			}
			if cmd.Flags().Changed("system-prompt") {
				req.SystemPrompt = &systemPrompt
			}
			resp, err := a.ctl.InvokeAgent(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.renderer().agentResponse(resp)
		},
	}
	agent.Flags().StringVar(&agentID, "agent", "", "Stored agent id")
	agent.Flags().StringVar(&systemPrompt, "system-prompt", "", "Ad-hoc system prompt")
	agent.MarkFlagsMutuallyExclusive("agent", "system-prompt")

	flow := &cobra.Command{
		Use:   "flow <flow id> <initial prompt>",
		Short: "Run a flow",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.ctl.InvokeFlow(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return a.renderer().flowResult(res)
		},
	}

	cmd.AddCommand(agent, flow)
	return cmd
}

func (a *app) toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List tools agents may enable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.ctl.LoadTools(cmd.Context())
			if err != nil {
				return err
			}
			return a.renderer().tools(list)
		},
	}
}

// loadAgentNames fills the agent cache so flows print names. Failures only
// cost the names.
func (a *app) loadAgentNames(cmd *cobra.Command) {
	if a.output == "json" {
		return
	}
	_, _ = a.ctl.RefreshAgents(cmd.Context())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
