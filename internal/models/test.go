package models

import (
	"time"

	"github.com/google/uuid"
)

// Test is one user input (text or image) evaluated against one or more prompts.
type Test struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	UserInput string    `json:"user_input" db:"user_input"`
	Image     []byte    `json:"image,omitempty" db:"image_bytes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Association holds the result of invoking one prompt for one test.
type Association struct {
	TestID          uuid.UUID `json:"test_id" db:"test_id"`
	PromptID        uuid.UUID `json:"prompt_id" db:"prompt_id"`
	ResponseText    string    `json:"llm_response" db:"response_text"`
	InputTokens     int       `json:"input_tokens" db:"input_tokens"`
	OutputTokens    int       `json:"output_tokens" db:"output_tokens"`
	TotalTokens     int       `json:"total_tokens" db:"total_tokens"`
	LatencyMs       int64     `json:"latency_ms" db:"latency_ms"`
	PromptTokens    int       `json:"prompt_tokens" db:"prompt_tokens"`
	UserInputTokens *int      `json:"user_input_tokens,omitempty" db:"user_input_tokens"`
}

// TestResult is a test joined with its association to a single prompt.
// Image is encoded as base64 by encoding/json.
type TestResult struct {
	Test
	Association
}
