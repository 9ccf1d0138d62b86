package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aescanero/classflow/pkg/domain"
	"github.com/aescanero/classflow/pkg/ports"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// DefaultMaxTokens is used when a request does not set MaxTokens.
const DefaultMaxTokens = 4096

// Options configures a Client.
type Options struct {
	APIKey       string
	DefaultModel string
	Timeout      time.Duration
	MaxRetries   int
	Metrics      ports.MetricsCollector
}

// Client implements ports.LLMClient with the Anthropic Messages API
type Client struct {
	client       anthropic.Client
	defaultModel string
	metrics      ports.MetricsCollector
	logger       *zap.Logger
}

// NewClient creates a new Anthropic client
func NewClient(opts Options, logger *zap.Logger) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if opts.DefaultModel == "" {
		return nil, fmt.Errorf("default model is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(opts.MaxRetries),
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}

	return &Client{
		client:       anthropic.NewClient(reqOpts...),
		defaultModel: opts.DefaultModel,
		metrics:      opts.Metrics,
		logger:       logger,
	}, nil
}

// GenerateCompletion sends one Messages API request and returns the
// concatenated text blocks of the reply.
func (c *Client) GenerateCompletion(ctx context.Context, req *domain.LLMRequest) (*domain.LLMResponse, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  toMessageParams(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	start := time.Now()
	msg, err := c.client.Messages.New(ctx, params)
	duration := time.Since(start)
	if err != nil {
		c.record(model, "error", duration, 0, 0)
		c.logger.Error("anthropic request failed",
			zap.String("model", model),
			zap.Duration("duration", duration),
			zap.Error(err))
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	resp := &domain.LLMResponse{
		Content:      text.String(),
		Model:        string(msg.Model),
		StopReason:   string(msg.StopReason),
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}

	c.record(model, "ok", duration, resp.InputTokens, resp.OutputTokens)
	c.logger.Debug("anthropic completion",
		zap.String("model", resp.Model),
		zap.String("stop_reason", resp.StopReason),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
		zap.Duration("duration", duration))

	return resp, nil
}

func (c *Client) record(model, status string, d time.Duration, in, out int) {
	if c.metrics != nil {
		c.metrics.RecordLLMCall(model, status, d, in, out)
	}
}

func toMessageParams(messages []domain.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}
