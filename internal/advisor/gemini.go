// Package advisor turns a user's aggregated ledger into a text context and
// asks a generative model for advice about it.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

// Advisor answers a question given a rendered financial context.
type Advisor interface {
	Advise(ctx context.Context, financialContext, question string) (string, error)
}

// Gemini is an Advisor backed by the Gemini API.
type Gemini struct {
	models *genai.Models
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing Gemini API key")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{models: client.Models, model: model}, nil
}

// Advise sends one prompt and returns the model's text. Failures are
// *Error values.
func (g *Gemini) Advise(ctx context.Context, financialContext, question string) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(BuildPrompt(financialContext, question)), nil)
	if err != nil {
		slog.ErrorContext(ctx, "Gemini request failed", "model", g.model, "error", err)
		return "", Classify(err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &Error{Kind: KindGeneric, Err: errors.New("empty response from model")}
	}
	return text, nil
}

// Unavailable is the Advisor used when no model is configured.
type Unavailable struct{}

func (Unavailable) Advise(context.Context, string, string) (string, error) {
	return "", &Error{Kind: KindModelUnavailable, Err: errors.New("advisor not configured")}
}

// AdvisorFunc adapts a function to the Advisor interface.
type AdvisorFunc func(ctx context.Context, financialContext, question string) (string, error)

func (f AdvisorFunc) Advise(ctx context.Context, financialContext, question string) (string, error) {
	return f(ctx, financialContext, question)
}
