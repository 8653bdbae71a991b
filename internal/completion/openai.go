package completion

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	openai "github.com/sashabaranov/go-openai"

	"github.com/thinktwice-ai/thinktwice/internal/history"
)

// Options configures an OpenAI-compatible source. The API key is required:
// there is no ambient credential lookup, each run brings its own key.
type Options struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	GeneratorModel string `mapstructure:"generator_model"`
	AuditorModel   string `mapstructure:"auditor_model"`
}

// DecodeOptions merges loosely typed provider options (for example the
// provider_options map from a config file) into opts.
func DecodeOptions(raw map[string]any, opts *Options) error {
	if len(raw) == 0 {
		return nil
	}
	if err := mapstructure.Decode(raw, opts); err != nil {
		return fmt.Errorf("decoding provider options: %w", err)
	}
	return nil
}

// OpenAISource talks to any OpenAI-compatible chat-completions endpoint
// (OpenRouter, OpenAI, local inference servers).
type OpenAISource struct {
	client         *openai.Client
	generatorModel string
	auditorModel   string
}

// NewOpenAISource builds a source from the given options.
func NewOpenAISource(opts Options) (*OpenAISource, error) {
	if opts.APIKey == "" {
		return nil, errors.New("API key is required (BYOK: no global credential is stored)")
	}
	if opts.GeneratorModel == "" || opts.AuditorModel == "" {
		return nil, errors.New("generator and auditor model identifiers are required")
	}

	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	return &OpenAISource{
		client:         openai.NewClientWithConfig(cfg),
		generatorModel: opts.GeneratorModel,
		auditorModel:   opts.AuditorModel,
	}, nil
}

// StreamGenerate implements [Source].
func (s *OpenAISource) StreamGenerate(ctx context.Context, messages []history.Message, temperature float32) (Stream, error) {
	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       s.generatorModel,
		Messages:    toChatMessages(messages),
		Temperature: temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("starting completion stream: %w", err)
	}
	return &openaiStream{inner: stream}, nil
}

// Judge implements [Source].
func (s *OpenAISource) Judge(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error) {
	var msgs []openai.ChatCompletionMessage
	if systemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userPrompt,
	})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.auditorModel,
		Messages:    msgs,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("judge completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("judge completion: provider returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

type openaiStream struct {
	inner *openai.ChatCompletionStream
}

func (s *openaiStream) Recv() (string, error) {
	resp, err := s.inner.Recv()
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *openaiStream) Close() error {
	return s.inner.Close()
}

func toChatMessages(messages []history.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return out
}
