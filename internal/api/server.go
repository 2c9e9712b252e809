package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"multiagent-manager/backend/internal/services"
	"multiagent-manager/backend/pkg/apperr"
	"multiagent-manager/backend/pkg/models"
)

// Server holds the dependencies for the API server.
type Server struct {
	Agents   *services.AgentService
	Flows    *services.FlowService
	Executor *services.FlowExecutor
	Invoker  *services.AgentInvoker
}

// NewServer creates a new Server.
func NewServer(agents *services.AgentService, flows *services.FlowService, executor *services.FlowExecutor, invoker *services.AgentInvoker) *Server {
	return &Server{Agents: agents, Flows: flows, Executor: executor, Invoker: invoker}
}

// RegisterHandlers mounts the REST routes on g, normally the /api/v1 group.
func RegisterHandlers(g *echo.Group, s *Server) {
	g.POST("/agents", s.CreateAgent)
	g.GET("/agents", s.ListAgents)
	g.GET("/agents/:id", s.GetAgent)
	g.PUT("/agents/:id", s.UpdateAgent)
	g.DELETE("/agents/:id", s.DeleteAgent)

	g.POST("/flows", s.CreateFlow)
	g.GET("/flows", s.ListFlows)
	g.GET("/flows/:id", s.GetFlow)
	g.PUT("/flows/:id", s.UpdateFlow)
	g.DELETE("/flows/:id", s.DeleteFlow)
	g.POST("/flows/:id/invoke", s.InvokeFlow)

	g.POST("/agent/invoke", s.InvokeAgent)
	g.GET("/tools/available", s.ListTools)
}

// CreateAgent creates an agent
// (POST /api/v1/agents)
func (s *Server) CreateAgent(c echo.Context) error {
	var input models.AgentInput
	if err := bind(c, &input); err != nil {
		return err
	}

	agent, err := s.Agents.CreateAgent(c.Request().Context(), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, agent)
}

// ListAgents returns a page of agents
// (GET /api/v1/agents?offset=&limit=)
func (s *Server) ListAgents(c echo.Context) error {
	opts, err := listOptions(c)
	if err != nil {
		return err
	}

	agents, err := s.Agents.ListAgents(c.Request().Context(), opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, agents)
}

// (GET /api/v1/agents/{id})
func (s *Server) GetAgent(c echo.Context) error {
	agent, err := s.Agents.GetAgent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, agent)
}

// UpdateAgent replaces an agent
// (PUT /api/v1/agents/{id})
func (s *Server) UpdateAgent(c echo.Context) error {
	var input models.AgentInput
	if err := bind(c, &input); err != nil {
		return err
	}

	agent, err := s.Agents.UpdateAgent(c.Request().Context(), c.Param("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, agent)
}

// (DELETE /api/v1/agents/{id})
func (s *Server) DeleteAgent(c echo.Context) error {
	if err := s.Agents.DeleteAgent(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// CreateFlow creates a flow
// (POST /api/v1/flows)
func (s *Server) CreateFlow(c echo.Context) error {
	var input models.FlowInput
	if err := bind(c, &input); err != nil {
		return err
	}

	flow, err := s.Flows.CreateFlow(c.Request().Context(), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, flow)
}

// (GET /api/v1/flows?offset=&limit=)
func (s *Server) ListFlows(c echo.Context) error {
	opts, err := listOptions(c)
	if err != nil {
		return err
	}

	flows, err := s.Flows.ListFlows(c.Request().Context(), opts)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, flows)
}

// (GET /api/v1/flows/{id})
func (s *Server) GetFlow(c echo.Context) error {
	flow, err := s.Flows.GetFlow(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, flow)
}

// UpdateFlow replaces a flow
// (PUT /api/v1/flows/{id})
func (s *Server) UpdateFlow(c echo.Context) error {
	var input models.FlowInput
	if err := bind(c, &input); err != nil {
		return err
	}

	flow, err := s.Flows.UpdateFlow(c.Request().Context(), c.Param("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, flow)
}

// (DELETE /api/v1/flows/{id})
func (s *Server) DeleteFlow(c echo.Context) error {
	if err := s.Flows.DeleteFlow(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// InvokeFlow runs a flow and returns its final output and step log
// (POST /api/v1/flows/{id}/invoke)
func (s *Server) InvokeFlow(c echo.Context) error {
	var req models.FlowInvokeRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result, err := s.Executor.Invoke(c.Request().Context(), c.Param("id"), req.InitialUserPrompt)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// InvokeAgent runs a single agent or an ad-hoc system prompt
// (POST /api/v1/agent/invoke)
func (s *Server) InvokeAgent(c echo.Context) error {
	var req models.AgentInvokeRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	resp, err := s.Invoker.Invoke(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// (GET /api/v1/tools/available)
func (s *Server) ListTools(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Agents.ListTools())
}

func bind(c echo.Context, v any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, v); err != nil {
		return apperr.InvalidInput("invalid request body: %s", bindMessage(err))
	}
	return nil
}

func bindMessage(err error) string {
	if he, ok := err.(*echo.HTTPError); ok {
		return messageOf(he)
	}
	return err.Error()
}

func listOptions(c echo.Context) (models.ListOptions, error) {
	var opts models.ListOptions
	err := echo.QueryParamsBinder(c).
		Int("offset", &opts.Offset).
		Int("limit", &opts.Limit).
		BindError()
	if err != nil {
		return opts, apperr.InvalidInput("invalid paging parameters: %s", bindMessage(err))
	}
	if opts.Offset < 0 || opts.Limit < 0 {
		return opts, apperr.InvalidInput("offset and limit must not be negative")
	}
	return opts, nil
}
