package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"multiagent-manager/backend/pkg/apperr"
	"multiagent-manager/backend/pkg/models"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	boldStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	outputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)

// renderer writes command results either as styled text or as JSON.
type renderer struct {
	w    io.Writer
	json bool
}

func (r renderer) value(v any, text func(io.Writer)) error {
	if r.json {
		enc := json.NewEncoder(r.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(r.w)
	return nil
}

func (r renderer) agents(agents []models.Agent) error {
	return r.value(agents, func(w io.Writer) {
		if len(agents) == 0 {
			fmt.Fprintln(w, dimStyle.Render("no agents"))
			return
		}
		fmt.Fprintln(w, headerStyle.Render("Agents"))
		for _, a := range agents {
			writeAgent(w, a)
		}
	})
}

func (r renderer) agent(a *models.Agent) error {
	return r.value(a, func(w io.Writer) { writeAgent(w, *a) })
}

func writeAgent(w io.Writer, a models.Agent) {
	fmt.Fprintf(w, "%s %s\n", boldStyle.Render(a.Name), dimStyle.Render(a.ID))
	if a.SystemPrompt != "" {
		fmt.Fprintf(w, "  prompt: %s\n", a.SystemPrompt)
	}
	if len(a.ToolsEnabled) > 0 {
		fmt.Fprintf(w, "  tools:  %s\n", strings.Join(a.ToolsEnabled, ", "))
	}
}

// flows renders flows; name resolves agent ids for display.
func (r renderer) flows(flows []models.Flow, name func(string) string) error {
	return r.value(flows, func(w io.Writer) {
		if len(flows) == 0 {
			fmt.Fprintln(w, dimStyle.Render("no flows"))
			return
		}
		fmt.Fprintln(w, headerStyle.Render("Flows"))
		for _, f := range flows {
			writeFlow(w, f, name)
		}
	})
}

func (r renderer) flow(f *models.Flow, name func(string) string) error {
	return r.value(f, func(w io.Writer) { writeFlow(w, *f, name) })
}

func writeFlow(w io.Writer, f models.Flow, name func(string) string) {
	fmt.Fprintf(w, "%s %s\n", boldStyle.Render(f.Name), dimStyle.Render(f.ID))
	if f.Description != nil {
		fmt.Fprintf(w, "  %s\n", *f.Description)
	}
	steps := make([]string, len(f.AgentIDs))
	for i, id := range f.AgentIDs {
		steps[i] = name(id)
	}
	fmt.Fprintf(w, "  %s\n", strings.Join(steps, " → "))
}

func (r renderer) tools(list []models.Tool) error {
	return r.value(list, func(w io.Writer) {
		fmt.Fprintln(w, headerStyle.Render("Available tools"))
		for _, t := range list {
			fmt.Fprintf(w, "%s  %s\n", boldStyle.Render(t.Name), dimStyle.Render(t.Description))
		}
	})
}

func (r renderer) agentResponse(resp *models.AgentInvokeResponse) error {
	return r.value(resp, func(w io.Writer) {
		if resp.UsedSystemPrompt != "" {
			fmt.Fprintf(w, "%s %s\n", dimStyle.Render("system:"), resp.UsedSystemPrompt)
		}
		fmt.Fprintln(w, outputStyle.Render(resp.AgentResponse))
	})
}

// flowResult prints the step log numbered from 1 followed by the final output.
func (r renderer) flowResult(res *models.FlowInvocationResult) error {
	return r.value(res, func(w io.Writer) {
		fmt.Fprintln(w, headerStyle.Render("Flow "+res.FlowName))
		for i, step := range res.Log {
			fmt.Fprintf(w, "%s %s\n", boldStyle.Render(fmt.Sprintf("Step %d:", i+1)), step.AgentName)
			fmt.Fprintf(w, "  %s %s\n", dimStyle.Render("input: "), step.InputPrompt)
			fmt.Fprintf(w, "  %s %s\n", dimStyle.Render("output:"), step.OutputResponse)
		}
		fmt.Fprintln(w, boldStyle.Render("Final output"))
		fmt.Fprintln(w, outputStyle.Render(res.FinalOutput))
	})
}

func (r renderer) deleted(kind, id string) error {
	return r.value(map[string]string{"deleted": id}, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s deleted\n", kind, id)
	})
}

// failure describes err for the terminal, including the failing flow step.
func (r renderer) failure(err error) {
	e, ok := apperr.As(err)
	if r.json {
		body := map[string]any{"kind": string(apperr.KindOf(err)), "message": err.Error()}
		if ok {
			body["message"] = e.Message
			if e.IsStep() {
				body["step_index"] = e.Position()
				body["agent_id"] = e.AgentID
				body["agent_name"] = e.AgentName
			}
		}
		_ = json.NewEncoder(r.w).Encode(body)
		return
	}

	if !ok {
		fmt.Fprintln(r.w, errStyle.Render("error: ")+err.Error())
		return
	}
	fmt.Fprintln(r.w, errStyle.Render(string(e.Kind)+": ")+e.Message)
	if e.IsStep() {
		fmt.Fprintf(r.w, "  at step %d (agent %s, %s)\n", e.Position(), e.AgentName, e.AgentID)
	}
	for i, step := range e.PartialLog {
		fmt.Fprintf(r.w, "  %s %s: %s\n", dimStyle.Render(fmt.Sprintf("completed step %d", i+1)), step.AgentName, step.OutputResponse)
	}
}
