// Package mcp exposes agent and flow operations as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"multiagent-manager/backend/internal/services"
	"multiagent-manager/backend/pkg/models"
)

type Server struct {
	mcpServer *server.MCPServer
	agents    *services.AgentService
	flows     *services.FlowService
	executor  *services.FlowExecutor
	invoker   *services.AgentInvoker
}

func NewServer(agents *services.AgentService, flows *services.FlowService, executor *services.FlowExecutor, invoker *services.AgentInvoker, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Multi-agent manager",
			version,
			server.WithToolCapabilities(true),
		),
		agents:   agents,
		flows:    flows,
		executor: executor,
		invoker:  invoker,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_agents",
			mcp.WithDescription("List the configured agents"),
		),
		s.handleListAgents,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_flows",
			mcp.WithDescription("List the configured flows"),
		),
		s.handleListFlows,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"invoke_agent",
			mcp.WithDescription("Invoke a stored agent, or an ad-hoc system prompt, once"),
			mcp.WithString("agent_id", mcp.Description("ID of a stored agent. Mutually exclusive with system_prompt")),
			mcp.WithString("system_prompt", mcp.Description("Ad-hoc system prompt. Mutually exclusive with agent_id")),
			mcp.WithString("user_prompt", mcp.Required(), mcp.Description("The user prompt")),
		),
		s.handleInvokeAgent,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"invoke_flow",
			mcp.WithDescription("Run a flow: each agent's output becomes the next agent's input"),
			mcp.WithString("flow_id", mcp.Required(), mcp.Description("The ID of the flow")),
			mcp.WithString("initial_user_prompt", mcp.Required(), mcp.Description("Input for the first agent")),
		),
		s.handleInvokeFlow,
	)
}

func (s *Server) handleListAgents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	agents, err := s.agents.ListAgents(ctx, models.ListOptions{})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(agents)
}

func (s *Server) handleListFlows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	flows, err := s.flows.ListFlows(ctx, models.ListOptions{})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(flows)
}

func (s *Server) handleInvokeAgent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userPrompt, err := request.RequireString("user_prompt")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := models.AgentInvokeRequest{UserPrompt: userPrompt}
	args := request.GetArguments()
	if v, ok := args["agent_id"].(string); ok {
		req.AgentID = &v
	}
	if v, ok := args["system_prompt"].(string); ok {
		req.SystemPrompt = &v
	}

	resp, err := s.invoker.Invoke(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(resp)
}

func (s *Server) handleInvokeFlow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	flowID, err := request.RequireString("flow_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	prompt, err := request.RequireString("initial_user_prompt")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.executor.Invoke(ctx, flowID, prompt)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(result)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// MountHTTPHandlers serves the SSE transport: clients open /mcp/sse and
// post messages to /mcp/message.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	sse := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))
	mux.Handle("/mcp/sse", sse.SSEHandler())
	mux.Handle("/mcp/message", sse.MessageHandler())
}
