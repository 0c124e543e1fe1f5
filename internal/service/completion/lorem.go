package completion

import (
	"context"
	"strings"

	loremgen "github.com/bozaro/golorem"

	svc "codebench/internal/domain/services/completion"
)

// LoremProvider is a fake provider that generates lorem ipsum text.
// Used for development and tests without real API keys.
type LoremProvider struct {
	generator *loremgen.Lorem
}

// NewLoremProvider creates a new lorem ipsum provider.
func NewLoremProvider() *LoremProvider {
	return &LoremProvider{
		generator: loremgen.New(),
	}
}

// Name returns the provider name.
func (p *LoremProvider) Name() string {
	return "lorem"
}

// SupportsModel returns true if the model name starts with "lorem-".
func (p *LoremProvider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "lorem-")
}

// Generate produces a canned lorem ipsum response.
func (p *LoremProvider) Generate(ctx context.Context, req *svc.Request) (*svc.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Roughly one sentence per 16 requested tokens.
	sentences := int(req.MaxTokens / 16)
	if sentences < 1 {
		sentences = 1
	}
	if sentences > 32 {
		sentences = 32
	}

	var text strings.Builder
	for i := 0; i < sentences; i++ {
		if i > 0 {
			text.WriteString(" ")
		}
		text.WriteString(p.generator.Sentence(4, 12))
	}

	return &svc.Response{
		Model:        req.Model,
		Text:         text.String(),
		StopReason:   "end_turn",
		OutputTokens: int64(sentences * 16),
	}, nil
}
