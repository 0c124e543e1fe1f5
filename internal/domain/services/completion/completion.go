package completion

import "context"

// Completer is the request/response text-generation capability the IDE
// layers on third-party model APIs.
type Completer interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// Provider generates completions for a family of models.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// SupportsModel reports whether this provider serves the given model.
	SupportsModel(model string) bool

	// Generate produces a completion.
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Request is a single completion request.
type Request struct {
	Model       string   `json:"model,omitempty"` // empty = configured default
	Prompt      string   `json:"prompt"`
	System      string   `json:"system,omitempty"`
	MaxTokens   int64    `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Response is a completed generation.
type Response struct {
	Model        string `json:"model"`
	Text         string `json:"text"`
	StopReason   string `json:"stop_reason,omitempty"`
	InputTokens  int64  `json:"input_tokens,omitempty"`
	OutputTokens int64  `json:"output_tokens,omitempty"`
}
