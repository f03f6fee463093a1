package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/gaurav-prasanna/muniwatch/core"
	"github.com/gaurav-prasanna/muniwatch/internal/resilience"
)

// chatProvider is the endpoint and default model of an OpenAI-compatible
// chat completions API.
type chatProvider struct {
	endpoint string
	model    string
	headers  map[string]string
}

var chatProviders = map[string]chatProvider{
	ProviderGroq: {
		endpoint: "https://api.groq.com/openai/v1/chat/completions",
		model:    "llama-3.1-8b-instant",
	},
	ProviderOpenRouter: {
		endpoint: "https://openrouter.ai/api/v1/chat/completions",
		model:    "meta-llama/llama-3.1-8b-instruct",
		headers: map[string]string{
			"HTTP-Referer": "https://github.com/gaurav-prasanna/muniwatch",
			"X-Title":      "muniwatch",
		},
	},
	ProviderTogether: {
		endpoint: "https://api.together.xyz/v1/chat/completions",
		model:    "meta-llama/Meta-Llama-3.1-8B-Instruct-Turbo",
	},
	ProviderOpenAI: {
		endpoint: "https://api.openai.com/v1/chat/completions",
		model:    "gpt-4o-mini",
	},
}

// ChatCompletions talks to an OpenAI-compatible /chat/completions API.
type ChatCompletions struct {
	name     string
	endpoint string
	model    string
	apiKey   string
	headers  map[string]string
	client   *http.Client
	retry    resilience.RetryConfig
}

// NewChatCompletions creates the analyzer for one of groq, openrouter,
// together or openai. cfg.Model and cfg.BaseURL override the defaults.
func NewChatCompletions(provider string, cfg Config) *ChatCompletions {
	p := chatProviders[provider]
	c := &ChatCompletions{
		name:     provider,
		endpoint: p.endpoint,
		model:    p.model,
		apiKey:   cfg.APIKey,
		headers:  p.headers,
		client:   &http.Client{Timeout: cfg.Timeout},
		retry:    cfg.Retry,
	}
	if cfg.BaseURL != "" {
		c.endpoint = strings.TrimSuffix(cfg.BaseURL, "/") + "/chat/completions"
	}
	if cfg.Model != "" {
		c.model = cfg.Model
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger(provider, "chat_completion")
	}
	return c
}

// Name returns the provider name.
func (c *ChatCompletions) Name() string { return c.name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Analyze sends text for review, retrying rate limits and server errors.
func (c *ChatCompletions) Analyze(ctx context.Context, text string) (*core.Opinion, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: userPrompt(text)},
		},
		Temperature: 0.1,
		MaxTokens:   500,
	})
	if err != nil {
		return nil, eris.Wrap(err, "analysis: marshal request")
	}

	reply, err := resilience.Do(ctx, c.retry, func(ctx context.Context) (string, error) {
		return c.complete(ctx, body)
	})
	if err != nil {
		return nil, err
	}

	op, err := parseReply(reply)
	if err != nil {
		return nil, err
	}
	op.Provider = c.name
	op.Model = c.model
	return op, nil
}

func (c *ChatCompletions) complete(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "analysis: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "analysis: call %s", c.name)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		statusErr := eris.Errorf("analysis: %s returned %d: %s", c.name, resp.StatusCode, strings.TrimSpace(string(payload)))
		if te := resilience.FromResponse(statusErr, resp); te != nil {
			return "", te
		}
		return "", statusErr
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", eris.Wrapf(err, "analysis: decode %s response", c.name)
	}
	if len(out.Choices) == 0 {
		return "", eris.Wrapf(ErrBadReply, "analysis: %s returned no choices", c.name)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
