package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nikhilbhutani/promptlab/internal/models"
)

type OpenAIProvider struct {
	client *openai.Client
}

func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
	}
}

func newOpenAIFromConfig(_ context.Context, mc models.ModelConfig) (Provider, error) {
	if mc.AccessKey == "" {
		return nil, fmt.Errorf("openai: access key required")
	}
	return NewOpenAIProvider(mc.AccessKey), nil
}

func (p *OpenAIProvider) Name() string { return models.ProviderOpenAI }

func (p *OpenAIProvider) Converse(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	var msgs []openai.ChatCompletionMessage
	if len(req.Image) > 0 {
		dataURL := fmt.Sprintf("data:image/%s;base64,%s", req.ImageFormat, base64.StdEncoding.EncodeToString(req.Image))
		msgs = []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
			},
		}}
	} else {
		msgs = []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.Prompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserInput},
		}
	}

	maxTokens, temperature, topP := req.Params.Values()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model.ModelID,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: float32(temperature),
		TopP:        float32(topP),
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	return &Result{
		Text:         content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}
