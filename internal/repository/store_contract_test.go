package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiagent-manager/backend/pkg/apperr"
	"multiagent-manager/backend/pkg/models"
)

// runStoreContract exercises behaviour every Store implementation shares.
func runStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("Agent Create and Get", func(t *testing.T) {
		agent := &models.Agent{
			ID:           uuid.NewString(),
			Name:         "Summarizer",
			SystemPrompt: "Summarize the input.",
			ToolsEnabled: []string{"simple_calculator"},
		}
		require.NoError(t, store.CreateAgent(ctx, agent))

		got, err := store.GetAgent(ctx, agent.ID)
		require.NoError(t, err)
		assert.Equal(t, agent, got)
	})

	t.Run("Agent without tools reads back empty list", func(t *testing.T) {
		agent := &models.Agent{ID: uuid.NewString(), Name: "Plain"}
		require.NoError(t, store.CreateAgent(ctx, agent))

		got, err := store.GetAgent(ctx, agent.ID)
		require.NoError(t, err)
		assert.NotNil(t, got.ToolsEnabled)
		assert.Empty(t, got.ToolsEnabled)
		assert.Empty(t, got.SystemPrompt)
	})

	t.Run("Agent missing", func(t *testing.T) {
		_, err := store.GetAgent(ctx, "missing")
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		err = store.UpdateAgent(ctx, &models.Agent{ID: "missing", Name: "x"})
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		err = store.DeleteAgent(ctx, "missing")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Agent Update replaces fields", func(t *testing.T) {
		agent := &models.Agent{ID: uuid.NewString(), Name: "Before", ToolsEnabled: []string{"a"}}
		require.NoError(t, store.CreateAgent(ctx, agent))

		updated := &models.Agent{ID: agent.ID, Name: "After", SystemPrompt: "new", ToolsEnabled: []string{}}
		require.NoError(t, store.UpdateAgent(ctx, updated))
		// An identical second update is still a success.
		require.NoError(t, store.UpdateAgent(ctx, updated))

		got, err := store.GetAgent(ctx, agent.ID)
		require.NoError(t, err)
		assert.Equal(t, "After", got.Name)
		assert.Equal(t, "new", got.SystemPrompt)
		assert.Empty(t, got.ToolsEnabled)
	})

	t.Run("Flow round trip with repeated agents", func(t *testing.T) {
		desc := "translate then review"
		flow := &models.Flow{
			ID:          uuid.NewString(),
			Name:        "Pipeline",
			Description: &desc,
			AgentIDs:    []string{"a1", "a2", "a1"},
		}
		require.NoError(t, store.CreateFlow(ctx, flow))

		got, err := store.GetFlow(ctx, flow.ID)
		require.NoError(t, err)
		assert.Equal(t, flow, got)

		flow.Description = nil
		flow.AgentIDs = []string{"a3"}
		require.NoError(t, store.UpdateFlow(ctx, flow))

		got, err = store.GetFlow(ctx, flow.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Description)
		assert.Equal(t, []string{"a3"}, got.AgentIDs)

		require.NoError(t, store.DeleteFlow(ctx, flow.ID))
		_, err = store.GetFlow(ctx, flow.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Deleting an agent leaves referencing flows intact", func(t *testing.T) {
		agent := &models.Agent{ID: uuid.NewString(), Name: "Doomed"}
		require.NoError(t, store.CreateAgent(ctx, agent))
		flow := &models.Flow{ID: uuid.NewString(), Name: "Dangling", AgentIDs: []string{agent.ID}}
		require.NoError(t, store.CreateFlow(ctx, flow))

		require.NoError(t, store.DeleteAgent(ctx, agent.ID))

		got, err := store.GetFlow(ctx, flow.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{agent.ID}, got.AgentIDs)
	})

	t.Run("List pages in creation order", func(t *testing.T) {
		var ids []string
		for i := 0; i < 3; i++ {
			f := &models.Flow{ID: uuid.NewString(), Name: "Paged", AgentIDs: []string{"a"}}
			require.NoError(t, store.CreateFlow(ctx, f))
			ids = append(ids, f.ID)
		}

		all, err := store.ListFlows(ctx, models.ListOptions{})
		require.NoError(t, err)
		var listed []string
		for _, f := range all {
			listed = append(listed, f.ID)
		}
		require.GreaterOrEqual(t, len(listed), 3)
		assert.Equal(t, ids, listed[len(listed)-3:])

		pageOne, err := store.ListFlows(ctx, models.ListOptions{Offset: len(listed) - 2, Limit: 1})
		require.NoError(t, err)
		require.Len(t, pageOne, 1)
		assert.Equal(t, ids[1], pageOne[0].ID)

		agents, err := store.ListAgents(ctx, models.ListOptions{Offset: 10_000})
		require.NoError(t, err)
		assert.Empty(t, agents)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}
