package service

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"subtitle-hub/ddd/infrastructure/llmcache"
	"subtitle-hub/pkg/config"
	"subtitle-hub/pkg/errno"
	"subtitle-hub/pkg/logger"
)

// AnalyzeRequest asks a configured LLM provider a question about subtitle
// text that was already downloaded. APIKey and BaseURL override the
// provider's configured credentials for this request only.
type AnalyzeRequest struct {
	Provider     string
	Model        string
	APIKey       string
	BaseURL      string
	Temperature  float32
	Instructions string
	SubtitleText string
}

// LLMService answers questions about subtitle text through OpenAI-compatible
// chat APIs. Non-streaming answers go through the redis-backed cache when one
// is configured.
type LLMService interface {
	// Analyze returns the full answer and the model that produced it.
	Analyze(ctx context.Context, req *AnalyzeRequest) (answer, modelUsed string, err error)

	// StreamAnalyze opens a streaming completion; the caller owns the stream
	// and must Close it.
	StreamAnalyze(ctx context.Context, req *AnalyzeRequest) (stream *openai.ChatCompletionStream, modelUsed string, err error)
}

type llmServiceImpl struct {
	cfg   config.LLMConfig
	cache *llmcache.AnalysisCache
}

func NewLLMService(cfg config.LLMConfig, cache *llmcache.AnalysisCache) LLMService {
	return &llmServiceImpl{cfg: cfg, cache: cache}
}

func (s *llmServiceImpl) Analyze(ctx context.Context, req *AnalyzeRequest) (string, string, error) {
	clientCfg, model, err := s.resolve(req)
	if err != nil {
		return "", "", err
	}
	client := openai.NewClientWithConfig(clientCfg)

	key := llmcache.Key(req.Provider, model, req.Temperature, req.Instructions, req.SubtitleText)
	if answer := s.cache.Get(ctx, key); answer != "" {
		logger.Debugf("analysis cache hit provider=%s model=%s", req.Provider, model)
		return answer, model, nil
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: req.Temperature,
		Messages:    s.messages(req),
	})
	if err != nil {
		return "", "", errno.ErrInternalServer.WithMessagef("llm request failed: %v", err)
	}
	if len(resp.Choices) == 0 {
		return "", "", errno.ErrInternalServer.WithMessagef("llm returned no choices")
	}

	answer := resp.Choices[0].Message.Content
	s.cache.Set(ctx, key, answer)
	return answer, model, nil
}

func (s *llmServiceImpl) StreamAnalyze(ctx context.Context, req *AnalyzeRequest) (*openai.ChatCompletionStream, string, error) {
	clientCfg, model, err := s.resolve(req)
	if err != nil {
		return nil, "", err
	}
	client := openai.NewClientWithConfig(clientCfg)

	stream, err := client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: req.Temperature,
		Messages:    s.messages(req),
		Stream:      true,
	})
	if err != nil {
		return nil, "", errno.ErrInternalServer.WithMessagef("llm stream request failed: %v", err)
	}
	return stream, model, nil
}

// resolve maps the request's provider name onto a client configuration.
// Request-level api key, base url and model win over the provider entry,
// which wins over the global default.
func (s *llmServiceImpl) resolve(req *AnalyzeRequest) (openai.ClientConfig, string, error) {
	provider, ok := s.cfg.Providers[strings.ToLower(strings.TrimSpace(req.Provider))]
	if !ok {
		return openai.ClientConfig{}, "", errno.ErrProviderUnknown.WithMessagef("unknown llm provider: %s", req.Provider)
	}

	apiKey := provider.APIKey
	if strings.TrimSpace(req.APIKey) != "" {
		apiKey = strings.TrimSpace(req.APIKey)
	}
	if apiKey == "" {
		return openai.ClientConfig{}, "", errno.ErrProviderKey.WithMessagef("no api key configured for provider %s", req.Provider)
	}

	clientCfg := openai.DefaultConfig(apiKey)
	baseURL := provider.BaseURL
	if strings.TrimSpace(req.BaseURL) != "" {
		baseURL = strings.TrimSpace(req.BaseURL)
	}
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = provider.Model
	}
	if model == "" {
		model = s.cfg.DefaultModel
	}
	return clientCfg, model, nil
}

func (s *llmServiceImpl) messages(req *AnalyzeRequest) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: s.cfg.SystemPrompt},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: req.Instructions + "\n\n字幕内容：\n" + req.SubtitleText,
		},
	}
}
