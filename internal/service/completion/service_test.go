package completion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"codebench/internal/domain"
	svc "codebench/internal/domain/services/completion"
)

type stubProvider struct {
	name    string
	models  map[string]bool
	lastReq *svc.Request
	resp    *svc.Response
	err     error
}

func (p *stubProvider) Name() string                { return p.name }
func (p *stubProvider) SupportsModel(m string) bool { return p.models[m] }
func (p *stubProvider) Generate(_ context.Context, req *svc.Request) (*svc.Response, error) {
	p.lastReq = req
	if p.err != nil {
		return nil, p.err
	}
	return p.resp, nil
}

func newTestCompleter(t *testing.T, providers ...svc.Provider) *Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewService(providers, "claude-haiku-4-5-20251001", logger)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return s
}

func TestComplete_RoutesToSupportingProvider(t *testing.T) {
	anthropic := &stubProvider{
		name:   "anthropic",
		models: map[string]bool{"claude-haiku-4-5-20251001": true},
		resp:   &svc.Response{Model: "claude-haiku-4-5-20251001", Text: "hi"},
	}
	lorem := &stubProvider{
		name:   "lorem",
		models: map[string]bool{"lorem-fast": true},
		resp:   &svc.Response{Model: "lorem-fast", Text: "lorem"},
	}
	s := newTestCompleter(t, anthropic, lorem)

	resp, err := s.Complete(context.Background(), &svc.Request{
		Model:  "lorem-fast",
		Prompt: "write something",
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != "lorem" {
		t.Errorf("expected lorem provider response, got %q", resp.Text)
	}
	if anthropic.lastReq != nil {
		t.Error("request leaked to the wrong provider")
	}
}

func TestComplete_EmptyModelUsesDefault(t *testing.T) {
	p := &stubProvider{
		name:   "anthropic",
		models: map[string]bool{"claude-haiku-4-5-20251001": true},
		resp:   &svc.Response{Model: "claude-haiku-4-5-20251001", Text: "ok"},
	}
	s := newTestCompleter(t, p)

	if _, err := s.Complete(context.Background(), &svc.Request{Prompt: "hello"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if p.lastReq.Model != "claude-haiku-4-5-20251001" {
		t.Errorf("expected default model, got %q", p.lastReq.Model)
	}
}

func TestComplete_ClampsMaxTokens(t *testing.T) {
	p := &stubProvider{
		name:   "anthropic",
		models: map[string]bool{"claude-haiku-4-5-20251001": true},
		resp:   &svc.Response{Text: "ok"},
	}
	s := newTestCompleter(t, p)

	tests := []struct {
		name      string
		maxTokens int64
		expected  int64
	}{
		{name: "zero becomes model limit", maxTokens: 0, expected: 8192},
		{name: "over limit is clamped", maxTokens: 1 << 20, expected: 8192},
		{name: "within limit passes through", maxTokens: 256, expected: 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Complete(context.Background(), &svc.Request{
				Prompt:    "hello",
				MaxTokens: tt.maxTokens,
			})
			if err != nil {
				t.Fatalf("Complete: %v", err)
			}
			if p.lastReq.MaxTokens != tt.expected {
				t.Errorf("expected max tokens %d, got %d", tt.expected, p.lastReq.MaxTokens)
			}
		})
	}
}

func TestComplete_Validation(t *testing.T) {
	p := &stubProvider{
		name:   "anthropic",
		models: map[string]bool{"claude-haiku-4-5-20251001": true},
	}
	s := newTestCompleter(t, p)

	tests := []struct {
		name string
		req  *svc.Request
	}{
		{name: "empty prompt", req: &svc.Request{Prompt: ""}},
		{name: "prompt too long", req: &svc.Request{Prompt: strings.Repeat("a", 100_001)}},
		{name: "unknown model", req: &svc.Request{Model: "gpt-99", Prompt: "hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Complete(context.Background(), tt.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestComplete_NoProviderForKnownModel(t *testing.T) {
	// lorem-fast exists in the capability files but no registered provider
	// serves it.
	p := &stubProvider{
		name:   "anthropic",
		models: map[string]bool{"claude-haiku-4-5-20251001": true},
	}
	s := newTestCompleter(t, p)

	_, err := s.Complete(context.Background(), &svc.Request{Model: "lorem-fast", Prompt: "hi"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestComplete_ProviderErrorWrapped(t *testing.T) {
	p := &stubProvider{
		name:   "anthropic",
		models: map[string]bool{"claude-haiku-4-5-20251001": true},
		err:    errors.New("rate limited"),
	}
	s := newTestCompleter(t, p)

	_, err := s.Complete(context.Background(), &svc.Request{Prompt: "hi"})
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("expected provider error surfaced, got %v", err)
	}
}
