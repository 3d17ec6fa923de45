// Package oracle wraps the AI-oracle capability (Claude) behind a single
// interface, per the "single Handler capability" design note: every bot
// handler asks a prompt and gets text back, with rate limiting and
// per-call timeouts applied here rather than duplicated per caller.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	apperrors "psycheos-gateway/pkg/errors"
	"psycheos-gateway/pkg/ratelimit"
)

var ErrOracleTimeout = errors.New("oracle: request timed out")

// Client is the capability surface every handler uses to call the AI
// oracle — one method, one failure mode, degrade-to-fallback left to the
// caller (spec §4.10 "AI-oracle errors ... degrade to rule-based fallbacks
// whenever possible").
type Client interface {
	Ask(ctx context.Context, systemPrompt, userMessage, model string, maxTokens int) (string, error)
}

type anthropicClient struct {
	sdk       anthropic.Client
	limiter   *ratelimit.Limiter
	timeout   time.Duration
}

// New builds an oracle client backed by the Anthropic API, guarded by a
// shared rate limiter (spec §5: "AI oracle calls have per-call timeouts").
func New(apiKey string, limiter *ratelimit.Limiter, timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &anthropicClient{
		sdk:     anthropic.NewClient(option.WithAPIKey(apiKey)),
		limiter: limiter,
		timeout: timeout,
	}
}

func (c *anthropicClient) Ask(ctx context.Context, systemPrompt, userMessage, model string, maxTokens int) (string, error) {
	if c.limiter != nil {
		allowed, err := c.limiter.Allow(ctx, "oracle")
		if err != nil {
			return "", fmt.Errorf("oracle: rate limiter: %w", err)
		}
		if !allowed {
			return "", apperrors.ErrTooManyRequests
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	message, err := c.sdk.Messages.New(callCtx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)),
		},
	})
	if err != nil {
		if callCtx.Err() != nil {
			return "", ErrOracleTimeout
		}
		return "", fmt.Errorf("oracle: %w", err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}
