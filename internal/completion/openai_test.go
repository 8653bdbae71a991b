package completion

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thinktwice-ai/thinktwice/internal/history"
)

func TestNewOpenAISourceRequiresKey(t *testing.T) {
	_, err := NewOpenAISource(Options{
		GeneratorModel: "gen",
		AuditorModel:   "aud",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func TestNewOpenAISourceRequiresModels(t *testing.T) {
	_, err := NewOpenAISource(Options{APIKey: "sk-test"})
	require.Error(t, err)
}

func TestToChatMessages(t *testing.T) {
	msgs := toChatMessages([]history.Message{
		{Role: history.RoleSystem, Content: "directive"},
		{Role: history.RoleUser, Content: "task"},
		{Role: history.RoleAssistant, Content: "reasoning"},
	})

	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "task", msgs[1].Content)
	assert.Equal(t, "assistant", msgs[2].Role)
}

func TestDecodeOptions(t *testing.T) {
	opts := Options{APIKey: "sk-test", GeneratorModel: "default-gen"}
	err := DecodeOptions(map[string]any{
		"base_url":        "http://localhost:11434/v1",
		"generator_model": "llama3:70b",
	}, &opts)

	require.NoError(t, err)
	assert.Equal(t, "sk-test", opts.APIKey)
	assert.Equal(t, "http://localhost:11434/v1", opts.BaseURL)
	assert.Equal(t, "llama3:70b", opts.GeneratorModel)
}

func TestMockStreamRespectsCancellation(t *testing.T) {
	src := &MockSource{Scripts: [][]string{{"a", "b", "c"}}}

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := src.StreamGenerate(ctx, nil, 0)
	require.NoError(t, err)

	delta, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "a", delta)

	cancel()
	_, err = stream.Recv()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockStreamEndsWithEOF(t *testing.T) {
	src := &MockSource{Scripts: [][]string{{"only"}}}

	stream, err := src.StreamGenerate(context.Background(), nil, 0.5)
	require.NoError(t, err)

	_, err = stream.Recv()
	require.NoError(t, err)
	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)

	assert.Equal(t, []float32{0.5}, src.Temperatures())
}
