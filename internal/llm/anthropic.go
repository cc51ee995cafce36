package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nikhilbhutani/promptlab/internal/models"
)

type AnthropicProvider struct {
	client anthropic.Client
}

func NewAnthropicProvider(apiKey string) *AnthropicProvider {
	return &AnthropicProvider{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

func newAnthropicFromConfig(_ context.Context, mc models.ModelConfig) (Provider, error) {
	if mc.AccessKey == "" {
		return nil, fmt.Errorf("anthropic: access key required")
	}
	return NewAnthropicProvider(mc.AccessKey), nil
}

func (p *AnthropicProvider) Name() string { return models.ProviderAnthropic }

func (p *AnthropicProvider) Converse(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	maxTokens, temperature, topP := req.Params.Values()
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model.ModelID),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(temperature),
		TopP:        anthropic.Float(topP),
	}

	if len(req.Image) > 0 {
		params.Messages = []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(req.Prompt),
				anthropic.NewImageBlockBase64("image/"+req.ImageFormat, base64.StdEncoding.EncodeToString(req.Image)),
			),
		}
	} else {
		params.System = []anthropic.TextBlockParam{{Text: req.Prompt}}
		params.Messages = []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserInput)),
		}
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic chat: %w", err)
	}

	content := ""
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	inputTokens := int(resp.Usage.InputTokens)
	outputTokens := int(resp.Usage.OutputTokens)

	return &Result{
		Text:         content,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		TotalTokens:  inputTokens + outputTokens,
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}
