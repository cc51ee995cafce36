package llm

import (
	"context"

	"github.com/nikhilbhutani/promptlab/internal/models"
)

// Provider executes a single model call against one remote service.
type Provider interface {
	Converse(ctx context.Context, req Request) (*Result, error)
	Name() string
}

// Gateway resolves the provider for a model configuration and invokes it
// with retry. It is the only path from this service to a remote model.
type Gateway interface {
	Invoke(ctx context.Context, req Request) (*Result, error)
}

// Params are the generation settings sent with a call. A nil field is
// replaced by the gateway's configured default; an explicit zero is sent
// as is.
type Params struct {
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
}

// Values returns the settings with nil fields read as zero.
func (p Params) Values() (maxTokens int, temperature, topP float64) {
	if p.MaxTokens != nil {
		maxTokens = *p.MaxTokens
	}
	if p.Temperature != nil {
		temperature = *p.Temperature
	}
	if p.TopP != nil {
		topP = *p.TopP
	}
	return maxTokens, temperature, topP
}

// Request is one invocation. Model carries opened (plaintext) credentials.
// With Image set the call is multimodal: Prompt and the image are sent
// together as the user turn. Otherwise Prompt is the system prompt and
// UserInput the user turn.
type Request struct {
	Model       models.ModelConfig
	Prompt      string
	UserInput   string
	Image       []byte
	ImageFormat string // jpeg, png, gif or webp
	Params      Params
}

// Result is the response text and usage reported by the provider.
type Result struct {
	Text         string `json:"text"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	TotalTokens  int    `json:"total_tokens"`
	LatencyMs    int64  `json:"latency_ms"`
}

// Image formats accepted by every provider.
var ImageFormats = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}
