package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibridge-dev/aibridge/internal/config"
	"github.com/aibridge-dev/aibridge/pkg/types"
)

func TestParseModelRef(t *testing.T) {
	tests := []struct {
		ref      string
		provider string
		model    string
	}{
		{"", "anthropic", "claude-sonnet-4-20250514"},
		{"anthropic/claude-sonnet-4-20250514", "anthropic", "claude-sonnet-4-20250514"},
		{"openai/gpt-4o", "openai", "gpt-4o"},
		{"ark/ep-2024", "ark", "ep-2024"},
		{"claude-3-5-haiku", "anthropic", "claude-3-5-haiku"},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			provider, model := parseModelRef(tt.ref)
			assert.Equal(t, tt.provider, provider)
			assert.Equal(t, tt.model, model)
		})
	}
}

func TestBuildChatModel_Errors(t *testing.T) {
	ctx := context.Background()
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ARK_API_KEY", "")

	t.Run("unknown provider", func(t *testing.T) {
		_, err := buildChatModel(ctx, "mystery", "m", &types.Config{}, config.AuthAPIKey)
		assert.ErrorContains(t, err, "unknown provider")
	})

	t.Run("disabled provider", func(t *testing.T) {
		cfg := &types.Config{Provider: map[string]types.ProviderConfig{
			"anthropic": {Disable: true},
		}}
		_, err := buildChatModel(ctx, "anthropic", "m", cfg, config.AuthAPIKey)
		assert.ErrorContains(t, err, "provider disabled")
	})

	t.Run("api key mode without key", func(t *testing.T) {
		_, err := buildChatModel(ctx, "anthropic", "m", &types.Config{}, config.AuthAPIKey)
		assert.ErrorContains(t, err, "ANTHROPIC_API_KEY")
	})

	t.Run("oauth mode without base URL", func(t *testing.T) {
		_, err := buildChatModel(ctx, "anthropic", "m", &types.Config{}, config.AuthOAuth)
		assert.ErrorContains(t, err, "base URL")
	})
}

func TestChatEngine_StartAndClose(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	eng := NewChatEngine(&types.Config{Model: "anthropic/claude-sonnet-4-20250514"}, config.AuthAPIKey)
	assert.Equal(t, "anthropic/claude-sonnet-4-20250514", eng.Model())

	require.NoError(t, eng.StartChat(context.Background()))
	// Idempotent.
	require.NoError(t, eng.StartChat(context.Background()))

	require.NoError(t, eng.Close())
	require.NoError(t, eng.Close())

	// Sending after Close fails.
	_, err := eng.SendMessageStream(context.Background(), "hi", "turn-1", 1)
	assert.ErrorContains(t, err, "chat not started")
}

func TestChatEngine_StartFailureLeavesEngineInactive(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	eng := NewChatEngine(&types.Config{Model: "anthropic/claude-sonnet-4-20250514"}, config.AuthAPIKey)
	err := eng.StartChat(context.Background())
	require.Error(t, err)

	_, err = eng.SendMessageStream(context.Background(), "hi", "turn-1", 1)
	assert.ErrorContains(t, err, "chat not started")
}

func TestChatEngine_HistoryAccessors(t *testing.T) {
	eng := &ChatEngine{}

	eng.SetHistory([]types.Turn{
		{Role: "user", Text: "question"},
		{Role: "assistant", Text: "answer"},
		{Role: "assistant", Text: ""},
	})

	raw := eng.History(false)
	assert.Len(t, raw, 3)

	curated := eng.History(true)
	assert.Len(t, curated, 2)
	assert.Equal(t, "question", curated[0].Text)

	eng.ClearHistory()
	assert.Empty(t, eng.History(false))
}

func TestChatEngine_SetHistoryNormalizesUnknownRoles(t *testing.T) {
	eng := &ChatEngine{}
	eng.SetHistory([]types.Turn{{Role: "narrator", Text: "odd"}})

	history := eng.History(false)
	require.Len(t, history, 1)
	assert.Equal(t, "user", history[0].Role)
}
