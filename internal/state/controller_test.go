package state

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"multiagent-manager/backend/pkg/apperr"
	"multiagent-manager/backend/pkg/models"
)

// MockAPI is a mock for API
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) ListAgents(ctx context.Context, opts models.ListOptions) ([]models.Agent, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Agent), args.Error(1)
}

func (m *MockAPI) CreateAgent(ctx context.Context, input models.AgentInput) (*models.Agent, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agent), args.Error(1)
}

func (m *MockAPI) UpdateAgent(ctx context.Context, id string, input models.AgentInput) (*models.Agent, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Agent), args.Error(1)
}

func (m *MockAPI) DeleteAgent(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAPI) ListFlows(ctx context.Context, opts models.ListOptions) ([]models.Flow, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Flow), args.Error(1)
}

func (m *MockAPI) CreateFlow(ctx context.Context, input models.FlowInput) (*models.Flow, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Flow), args.Error(1)
}

func (m *MockAPI) UpdateFlow(ctx context.Context, id string, input models.FlowInput) (*models.Flow, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Flow), args.Error(1)
}

func (m *MockAPI) DeleteFlow(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAPI) InvokeAgent(ctx context.Context, req models.AgentInvokeRequest) (*models.AgentInvokeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AgentInvokeResponse), args.Error(1)
}

func (m *MockAPI) InvokeFlow(ctx context.Context, id, initialUserPrompt string) (*models.FlowInvocationResult, error) {
	args := m.Called(ctx, id, initialUserPrompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FlowInvocationResult), args.Error(1)
}

func (m *MockAPI) ListTools(ctx context.Context) ([]models.Tool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Tool), args.Error(1)
}

func TestController_InitialStateIsIdle(t *testing.T) {
	c := NewController(new(MockAPI))

	for _, op := range []Op{OpRefreshAgents, OpInvokeFlow, OpDeleteFlow} {
		assert.Equal(t, Idle, c.Status(op))
	}
	r := Get[*models.FlowInvocationResult](c, OpInvokeFlow)
	assert.Nil(t, r.Value)
	assert.NoError(t, r.Err)
	assert.Empty(t, c.Agents())
}

func TestController_CreateAgentRefreshesList(t *testing.T) {
	api := new(MockAPI)
	input := models.AgentInput{Name: "Translator"}
	created := &models.Agent{ID: "a1", Name: "Translator", ToolsEnabled: []string{}}
	api.On("CreateAgent", mock.Anything, input).Return(created, nil).Once()
	api.On("ListAgents", mock.Anything, models.ListOptions{}).Return([]models.Agent{*created}, nil).Once()

	var mu sync.Mutex
	var transitions []Status
	c := NewController(api, WithObserver(func(op Op, s Status) {
		if op == OpCreateAgent {
			mu.Lock()
			transitions = append(transitions, s)
			mu.Unlock()
		}
	}))

	agent, err := c.CreateAgent(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, created, agent)

	r := Get[*models.Agent](c, OpCreateAgent)
	assert.Equal(t, Succeeded, r.Status)
	assert.Equal(t, created, r.Value)
	assert.Equal(t, Succeeded, c.Status(OpRefreshAgents))
	assert.Equal(t, []models.Agent{*created}, c.Agents())
	assert.Equal(t, "Translator", c.AgentName("a1"))
	assert.Equal(t, "zz", c.AgentName("zz"))
	assert.Equal(t, []Status{InProgress, Succeeded}, transitions)
	api.AssertExpectations(t)
}

func TestController_FailedMutationSkipsRefresh(t *testing.T) {
	api := new(MockAPI)
	boom := apperr.NotFound("flow", "f1")
	api.On("DeleteFlow", mock.Anything, "f1").Return(boom).Once()

	c := NewController(api)
	err := c.DeleteFlow(context.Background(), "f1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	r := Get[string](c, OpDeleteFlow)
	assert.Equal(t, Failed, r.Status)
	assert.Equal(t, boom, r.Err)
	assert.Equal(t, Idle, c.Status(OpRefreshFlows))
	api.AssertNotCalled(t, "ListFlows", mock.Anything, mock.Anything)

	c.Reset(OpDeleteFlow)
	assert.Equal(t, Idle, c.Status(OpDeleteFlow))
}

func TestController_OperationsAreIndependent(t *testing.T) {
	api := new(MockAPI)
	api.On("InvokeFlow", mock.Anything, "f1", "hi").Return(nil, errors.New("boom")).Once()
	api.On("InvokeAgent", mock.Anything, mock.Anything).Return(&models.AgentInvokeResponse{AgentResponse: "ok"}, nil).Once()
	api.On("ListTools", mock.Anything).Return([]models.Tool{{Name: "simple_calculator"}}, nil).Once()

	c := NewController(api)
	ctx := context.Background()
	_, _ = c.InvokeFlow(ctx, "f1", "hi")
	_, err := c.InvokeAgent(ctx, models.AgentInvokeRequest{UserPrompt: "x"})
	require.NoError(t, err)
	_, err = c.LoadTools(ctx)
	require.NoError(t, err)

	assert.Equal(t, Failed, c.Status(OpInvokeFlow))
	assert.Equal(t, "ok", Get[*models.AgentInvokeResponse](c, OpInvokeAgent).Value.AgentResponse)
	assert.Equal(t, Succeeded, c.Status(OpLoadTools))
	assert.Len(t, c.Tools(), 1)
	assert.Equal(t, Idle, c.Status(OpRefreshAgents))
}

func TestController_InProgressAndLatestWins(t *testing.T) {
	api := new(MockAPI)
	release := make(chan struct{})
	started := make(chan struct{})
	api.On("InvokeFlow", mock.Anything, "f1", "slow").
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&models.FlowInvocationResult{FinalOutput: "stale"}, nil).Once()
	api.On("InvokeFlow", mock.Anything, "f1", "fast").
		Return(&models.FlowInvocationResult{FinalOutput: "fresh"}, nil).Once()

	c := NewController(api)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.InvokeFlow(ctx, "f1", "slow")
	}()
	<-started
	assert.Equal(t, InProgress, c.Status(OpInvokeFlow))

	_, err := c.InvokeFlow(ctx, "f1", "fast")
	require.NoError(t, err)
	close(release)
	<-done

	r := Get[*models.FlowInvocationResult](c, OpInvokeFlow)
	assert.Equal(t, Succeeded, r.Status)
	assert.Equal(t, "fresh", r.Value.FinalOutput)
}

func TestController_StaleRefreshKeepsLatestCache(t *testing.T) {
	api := new(MockAPI)
	release := make(chan struct{})
	started := make(chan struct{})
	stale := []models.Agent{{ID: "old", Name: "stale"}}
	fresh := []models.Agent{{ID: "new", Name: "fresh"}}
	api.On("ListAgents", mock.Anything, models.ListOptions{}).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(stale, nil).Once()
	api.On("ListAgents", mock.Anything, models.ListOptions{}).Return(fresh, nil).Once()

	c := NewController(api)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.RefreshAgents(ctx)
	}()
	<-started

	_, err := c.RefreshAgents(ctx)
	require.NoError(t, err)
	close(release)
	<-done

	assert.Equal(t, fresh, Get[[]models.Agent](c, OpRefreshAgents).Value)
	assert.Equal(t, fresh, c.Agents())
	assert.Equal(t, "fresh", c.AgentName("new"))
	assert.Equal(t, "old", c.AgentName("old"))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "in_progress", InProgress.String())
	assert.Equal(t, "succeeded", Succeeded.String())
	assert.Equal(t, "failed", Failed.String())
}
