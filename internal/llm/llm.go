// Package llm puts one completion interface in front of the Anthropic and
// Gemini clients so the classifier does not care which provider runs it.
package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gfscout/internal/config"
	"github.com/sells-group/gfscout/pkg/anthropic"
	"github.com/sells-group/gfscout/pkg/gemini"
)

// Prompt is a single-shot request.
type Prompt struct {
	System string
	User   string
}

// Completer returns the model's text for one prompt.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Params holds generation settings shared by both providers.
type Params struct {
	Model       string
	MaxTokens   int64
	Temperature float64
}

type anthropicCompleter struct {
	client anthropic.Client
	params Params
}

// NewAnthropic adapts an Anthropic client to Completer.
func NewAnthropic(client anthropic.Client, params Params) Completer {
	return &anthropicCompleter{client: client, params: params}
}

func (a *anthropicCompleter) Complete(ctx context.Context, p Prompt) (string, error) {
	temp := a.params.Temperature
	req := anthropic.MessageRequest{
		Model:       a.params.Model,
		MaxTokens:   a.params.MaxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: p.User}},
		Temperature: &temp,
	}
	req.System = anthropic.SystemPrompt(a.params.Model, p.System)

	resp, err := a.client.CreateMessage(ctx, req)
	if err != nil {
		return "", eris.Wrap(err, "llm: anthropic complete")
	}
	resp.Usage.LogCost(a.params.Model, "classify")

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", eris.New("llm: anthropic returned no text")
	}
	return text, nil
}

type geminiCompleter struct {
	client gemini.Client
	params Params
}

// NewGemini adapts a Gemini client to Completer.
func NewGemini(client gemini.Client, params Params) Completer {
	return &geminiCompleter{client: client, params: params}
}

func (g *geminiCompleter) Complete(ctx context.Context, p Prompt) (string, error) {
	temp := float32(g.params.Temperature)
	resp, err := g.client.Generate(ctx, gemini.GenerateRequest{
		Model:       g.params.Model,
		System:      p.System,
		Prompt:      p.User,
		Temperature: &temp,
		MaxTokens:   int32(g.params.MaxTokens),
	})
	if err != nil {
		return "", eris.Wrap(err, "llm: gemini complete")
	}

	zap.L().Info("cost attribution",
		zap.String("model", g.params.Model),
		zap.String("phase", "classify"),
		zap.Int32("input_tokens", resp.Usage.PromptTokens),
		zap.Int32("output_tokens", resp.Usage.CandidateTokens),
	)
	return strings.TrimSpace(resp.Text), nil
}

// New builds the Completer selected by llm.provider.
func New(ctx context.Context, cfg *config.Config) (Completer, error) {
	switch cfg.LLM.Provider {
	case "", "anthropic":
		return NewAnthropic(anthropic.NewClient(cfg.Anthropic.Key), Params{
			Model:       cfg.Anthropic.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		}), nil
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.Gemini.Key)
		if err != nil {
			return nil, eris.Wrap(err, "llm: gemini client")
		}
		return NewGemini(client, Params{
			Model:       cfg.Gemini.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		}), nil
	default:
		return nil, eris.Errorf("llm: unknown provider %q", cfg.LLM.Provider)
	}
}
