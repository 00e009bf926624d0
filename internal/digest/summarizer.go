package digest

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/sashabaranov/go-openai"
	"github.com/user/pagesum/internal/config"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

const (
	systemPrompt     = "You are a helpful assistant that summarizes web pages."
	userPromptPrefix = "Please provide a short summary of the following website content:\n\n"
)

// Summarizer generates page summaries using an LLM
type Summarizer struct {
	cfg  *config.Config
	opts options
}

func NewSummarizer(cfg *config.Config, opts ...Option) *Summarizer {
	return &Summarizer{cfg: cfg, opts: newOptions(opts)}
}

// Summarize sends the first MaxChars characters of content to the configured
// provider in a single request and returns the reply text unchanged.
func (s *Summarizer) Summarize(ctx context.Context, content string) (string, error) {
	limit := s.cfg.Summary.MaxChars
	if limit <= 0 {
		limit = config.DefaultMaxChars
	}
	content = Truncate(content, limit)

	s.opts.reporter.Progress("Sending %d characters to %s...", utf8.RuneCountInString(content), s.cfg.ProviderName())

	prompt := userPromptPrefix + content

	var response string
	var err error

	switch s.cfg.LLM.Provider {
	case config.ProviderAnthropic:
		response, err = s.summarizeWithAnthropic(ctx, prompt)
	case config.ProviderOpenAI, config.ProviderOpenRouter:
		response, err = s.summarizeWithOpenAI(ctx, prompt)
	default:
		err = fmt.Errorf("unsupported LLM provider: %s", s.cfg.LLM.Provider)
	}

	if err != nil {
		s.opts.logger.Debug("summarization request failed", "provider", s.cfg.LLM.Provider, "model", s.cfg.LLM.Model, "error", err)
		return "", fmt.Errorf("%w: %w", ErrSummarize, err)
	}

	return response, nil
}

func (s *Summarizer) summarizeWithOpenAI(ctx context.Context, prompt string) (string, error) {
	clientConfig := openai.DefaultConfig(s.cfg.LLM.APIKey)

	baseURL := s.cfg.LLM.BaseURL
	if baseURL == "" && s.cfg.LLM.Provider == config.ProviderOpenRouter {
		baseURL = openRouterBaseURL
	}
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	client := openai.NewClientWithConfig(clientConfig)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.LLM.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from %s", s.cfg.ProviderName())
	}

	return resp.Choices[0].Message.Content, nil
}

func (s *Summarizer) summarizeWithAnthropic(ctx context.Context, prompt string) (string, error) {
	var clientOpts []anthropic.ClientOption
	if s.cfg.LLM.BaseURL != "" {
		clientOpts = append(clientOpts, anthropic.WithBaseURL(s.cfg.LLM.BaseURL))
	}

	client := anthropic.NewClient(s.cfg.LLM.APIKey, clientOpts...)

	maxTokens := s.cfg.LLM.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}

	resp, err := client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(s.cfg.LLM.Model),
		System:    systemPrompt,
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{
			{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{{Type: "text", Text: &prompt}},
			},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Content) == 0 {
		return "", fmt.Errorf("empty response from Anthropic")
	}

	return resp.Content[0].GetText(), nil
}

// Truncate returns the first limit characters (runes) of s. It may cut mid-word,
// and applying it twice gives the same result as applying it once.
func Truncate(s string, limit int) string {
	if limit < 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
