package completion

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"codebench/internal/config"
	"codebench/internal/domain"
	svc "codebench/internal/domain/services/completion"
)

//go:embed capabilities/*.yaml
var capabilityFiles embed.FS

// ModelCapabilities bounds what a single model accepts.
type ModelCapabilities struct {
	Model           string `yaml:"model"`
	MaxOutputTokens int64  `yaml:"max_output_tokens"`
	ContextWindow   int64  `yaml:"context_window"`
}

type providerCapabilities struct {
	Provider string              `yaml:"provider"`
	Models   []ModelCapabilities `yaml:"models"`
}

// Service routes completion requests to the provider serving the requested
// model, clamping request parameters to the model's published capabilities.
type Service struct {
	providers    []svc.Provider
	caps         map[string]ModelCapabilities
	defaultModel string
	logger       *slog.Logger
}

// NewService creates the completion service and loads the embedded model
// capability files.
func NewService(providers []svc.Provider, defaultModel string, logger *slog.Logger) (*Service, error) {
	caps := make(map[string]ModelCapabilities)

	entries, err := capabilityFiles.ReadDir("capabilities")
	if err != nil {
		return nil, fmt.Errorf("read capability files: %w", err)
	}
	for _, entry := range entries {
		data, err := capabilityFiles.ReadFile("capabilities/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}

		var pc providerCapabilities
		if err := yaml.Unmarshal(data, &pc); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", entry.Name(), err)
		}
		for _, mc := range pc.Models {
			caps[mc.Model] = mc
		}
	}

	return &Service{
		providers:    providers,
		caps:         caps,
		defaultModel: defaultModel,
		logger:       logger,
	}, nil
}

var _ svc.Completer = (*Service)(nil)

// Complete generates a completion for the request.
func (s *Service) Complete(ctx context.Context, req *svc.Request) (*svc.Response, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	model := req.Model
	if model == "" {
		model = s.defaultModel
	}

	mc, ok := s.caps[model]
	if !ok {
		return nil, fmt.Errorf("%w: unknown model %q", domain.ErrValidation, model)
	}

	// Clamp to the model's published output limit.
	maxTokens := req.MaxTokens
	if maxTokens <= 0 || maxTokens > mc.MaxOutputTokens {
		maxTokens = mc.MaxOutputTokens
	}

	provider := s.providerFor(model)
	if provider == nil {
		return nil, fmt.Errorf("%w: no provider serves model %q", domain.ErrValidation, model)
	}

	resolved := *req
	resolved.Model = model
	resolved.MaxTokens = maxTokens

	resp, err := provider.Generate(ctx, &resolved)
	if err != nil {
		return nil, fmt.Errorf("generate completion: %w", err)
	}

	s.logger.Info("completion generated",
		"provider", provider.Name(),
		"model", model,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
	)

	return resp, nil
}

func (s *Service) providerFor(model string) svc.Provider {
	for _, p := range s.providers {
		if p.SupportsModel(model) {
			return p
		}
	}
	return nil
}

func (s *Service) validateRequest(req *svc.Request) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Prompt,
			validation.Required,
			validation.Length(1, config.MaxCompletionPromptLength),
		),
	)
}
