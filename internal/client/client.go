// Package client is a typed HTTP client for the multi-agent manager REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"multiagent-manager/backend/pkg/apperr"
	"multiagent-manager/backend/pkg/models"
)

// DefaultTimeout bounds every request made by a Client built without an
// explicit http.Client. Flow invocations can take a while.
const DefaultTimeout = 5 * time.Minute

// Client talks to the REST API under baseURL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a new Client. baseURL is the server root, e.g.
// http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ListAgents(ctx context.Context, opts models.ListOptions) ([]models.Agent, error) {
	var agents []models.Agent
	err := c.do(ctx, http.MethodGet, "/api/v1/agents"+pageQuery(opts), nil, &agents)
	return agents, err
}

func (c *Client) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	var agent models.Agent
	if err := c.do(ctx, http.MethodGet, "/api/v1/agents/"+url.PathEscape(id), nil, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (c *Client) CreateAgent(ctx context.Context, input models.AgentInput) (*models.Agent, error) {
	var agent models.Agent
	if err := c.do(ctx, http.MethodPost, "/api/v1/agents", input, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (c *Client) UpdateAgent(ctx context.Context, id string, input models.AgentInput) (*models.Agent, error) {
	var agent models.Agent
	if err := c.do(ctx, http.MethodPut, "/api/v1/agents/"+url.PathEscape(id), input, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (c *Client) DeleteAgent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/agents/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListFlows(ctx context.Context, opts models.ListOptions) ([]models.Flow, error) {
	var flows []models.Flow
	err := c.do(ctx, http.MethodGet, "/api/v1/flows"+pageQuery(opts), nil, &flows)
	return flows, err
}

func (c *Client) GetFlow(ctx context.Context, id string) (*models.Flow, error) {
	var flow models.Flow
	if err := c.do(ctx, http.MethodGet, "/api/v1/flows/"+url.PathEscape(id), nil, &flow); err != nil {
		return nil, err
	}
	return &flow, nil
}

func (c *Client) CreateFlow(ctx context.Context, input models.FlowInput) (*models.Flow, error) {
	var flow models.Flow
	if err := c.do(ctx, http.MethodPost, "/api/v1/flows", input, &flow); err != nil {
		return nil, err
	}
	return &flow, nil
}

func (c *Client) UpdateFlow(ctx context.Context, id string, input models.FlowInput) (*models.Flow, error) {
	var flow models.Flow
	if err := c.do(ctx, http.MethodPut, "/api/v1/flows/"+url.PathEscape(id), input, &flow); err != nil {
		return nil, err
	}
	return &flow, nil
}

func (c *Client) DeleteFlow(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/flows/"+url.PathEscape(id), nil, nil)
}

// InvokeFlow runs a flow on the server.
func (c *Client) InvokeFlow(ctx context.Context, id, initialUserPrompt string) (*models.FlowInvocationResult, error) {
	var result models.FlowInvocationResult
	req := models.FlowInvokeRequest{InitialUserPrompt: initialUserPrompt}
	if err := c.do(ctx, http.MethodPost, "/api/v1/flows/"+url.PathEscape(id)+"/invoke", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// InvokeAgent runs a single agent or ad-hoc system prompt on the server.
func (c *Client) InvokeAgent(ctx context.Context, req models.AgentInvokeRequest) (*models.AgentInvokeResponse, error) {
	var resp models.AgentInvokeResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/agent/invoke", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListTools(ctx context.Context) ([]models.Tool, error) {
	var list []models.Tool
	err := c.do(ctx, http.MethodGet, "/api/v1/tools/available", nil, &list)
	return list, err
}

// Health fetches the server health report. A degraded server answers 503
// with a body, which is returned together with an error.
func (c *Client) Health(ctx context.Context) (*models.HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	var status models.HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &status, fmt.Errorf("server is %s", status.Status)
	}
	return &status, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		requestBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(requestBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeProblem(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// decodeProblem turns an error response back into an *apperr.Error so
// callers can use errors.Is with the apperr sentinels.
func decodeProblem(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var p models.ProblemDetails
	if err := json.Unmarshal(raw, &p); err != nil || p.Kind == "" {
		e := apperr.Internal(nil, "unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		e.Kind = kindForStatus(resp.StatusCode)
		return e
	}

	e := &apperr.Error{
		Kind:       apperr.Kind(p.Kind),
		Stage:      apperr.Stage(p.Stage),
		Message:    p.Message,
		EntityID:   p.EntityID,
		StepIndex:  apperr.NoStep,
		AgentID:    p.AgentID,
		AgentName:  p.AgentName,
		PartialLog: p.PartialLog,
	}
	if p.StepIndex > 0 {
		e.StepIndex = p.StepIndex - 1
	}
	return e
}

func kindForStatus(code int) apperr.Kind {
	switch {
	case code == http.StatusNotFound:
		return apperr.KindNotFound
	case code == http.StatusBadGateway:
		return apperr.KindInvocationFailed
	case code >= 400 && code < 500:
		return apperr.KindInvalidInput
	default:
		return apperr.KindInternal
	}
}

func pageQuery(opts models.ListOptions) string {
	q := url.Values{}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
