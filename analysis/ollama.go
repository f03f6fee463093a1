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

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "mistral"
)

// Ollama calls a local Ollama server's /api/generate endpoint.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
	retry   resilience.RetryConfig
}

// NewOllama creates an Ollama analyzer. cfg.BaseURL defaults to
// http://localhost:11434 and cfg.Model to mistral.
func NewOllama(cfg Config) *Ollama {
	o := &Ollama{
		baseURL: defaultOllamaURL,
		model:   defaultOllamaModel,
		client:  &http.Client{Timeout: cfg.Timeout},
		retry:   cfg.Retry,
	}
	if cfg.BaseURL != "" {
		o.baseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	if cfg.Model != "" {
		o.model = cfg.Model
	}
	if o.retry.MaxAttempts == 0 {
		o.retry.MaxAttempts = 3
	}
	if o.retry.OnRetry == nil {
		o.retry.OnRetry = resilience.RetryLogger(ProviderOllama, "generate")
	}
	return o
}

// Name returns "ollama".
func (o *Ollama) Name() string { return ProviderOllama }

// generateRequest is the request body for the Ollama generate API.
type generateRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format"`
	Options map[string]any `json:"options,omitempty"`
}

// generateResponse is the response body from the Ollama generate API.
type generateResponse struct {
	Response string `json:"response"`
}

// Analyze sends text to the local model.
func (o *Ollama) Analyze(ctx context.Context, text string) (*core.Opinion, error) {
	body, err := json.Marshal(generateRequest{
		Model:   o.model,
		System:  systemInstruction,
		Prompt:  userPrompt(text),
		Format:  "json",
		Options: map[string]any{"temperature": 0.1, "top_p": 0.9, "repeat_penalty": 1.1},
	})
	if err != nil {
		return nil, eris.Wrap(err, "analysis: marshal request")
	}

	reply, err := resilience.Do(ctx, o.retry, func(ctx context.Context) (string, error) {
		return o.generate(ctx, body)
	})
	if err != nil {
		return nil, err
	}
	op, err := parseReply(reply)
	if err != nil {
		return nil, err
	}
	op.Provider = ProviderOllama
	op.Model = o.model
	return op, nil
}

func (o *Ollama) generate(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "analysis: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "analysis: call ollama")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		statusErr := eris.Errorf("analysis: ollama returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
		if te := resilience.FromResponse(statusErr, resp); te != nil {
			return "", te
		}
		return "", statusErr
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", eris.Wrap(err, "analysis: decode ollama response")
	}
	return out.Response, nil
}
