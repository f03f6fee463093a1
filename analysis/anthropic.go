package analysis

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/gaurav-prasanna/muniwatch/core"
	"github.com/gaurav-prasanna/muniwatch/internal/resilience"
)

const defaultAnthropicModel = "claude-haiku-4-5-20251001"

// Anthropic reviews documents through the Anthropic Messages API.
type Anthropic struct {
	client sdk.Client
	model  string
	retry  resilience.RetryConfig
}

// NewAnthropic creates the analyzer. SDK retries are disabled so rate
// limits go through the shared retry policy.
func NewAnthropic(cfg Config) *Anthropic {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	a := &Anthropic{
		client: sdk.NewClient(opts...),
		model:  defaultAnthropicModel,
		retry:  cfg.Retry,
	}
	if cfg.Model != "" {
		a.model = cfg.Model
	}
	if a.retry.OnRetry == nil {
		a.retry.OnRetry = resilience.RetryLogger(ProviderAnthropic, "create_message")
	}
	return a
}

// Name returns "anthropic".
func (a *Anthropic) Name() string { return ProviderAnthropic }

// Analyze sends text for review.
func (a *Anthropic) Analyze(ctx context.Context, text string) (*core.Opinion, error) {
	params := sdk.MessageNewParams{
		Model:       sdk.Model(a.model),
		MaxTokens:   500,
		System:      []sdk.TextBlockParam{{Text: systemInstruction}},
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(userPrompt(text)))},
		Temperature: sdk.Float(0.1),
	}

	reply, err := resilience.Do(ctx, a.retry, func(ctx context.Context) (string, error) {
		msg, err := a.client.Messages.New(ctx, params)
		if err != nil {
			return "", transientAPIError(err)
		}
		var sb strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		return sb.String(), nil
	})
	if err != nil {
		return nil, err
	}

	op, err := parseReply(reply)
	if err != nil {
		return nil, err
	}
	op.Provider = ProviderAnthropic
	op.Model = a.model
	return op, nil
}

// transientAPIError marks retryable API statuses, keeping Retry-After.
func transientAPIError(err error) error {
	wrapped := eris.Wrap(err, "analysis: anthropic create message")
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) && apiErr.Response != nil {
		if te := resilience.FromResponse(wrapped, apiErr.Response); te != nil {
			return te
		}
	}
	return wrapped
}
