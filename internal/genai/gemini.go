// Package genai implements the material.Generator interface against
// the Gemini API. The primary artifact call uses structured output
// with a strict JSON schema; the supplementary research call uses
// Google Search grounding and returns free text.
package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/medfocus/medgenie/internal/material"
)

const (
	// DefaultContentModel is the model for the primary artifact
	// call.
	DefaultContentModel = "gemini-3-pro-preview"

	// DefaultResearchModel is the model for the supplementary
	// research call. Flash is cheaper for simple grounded searches.
	DefaultResearchModel = "gemini-3-flash-preview"
)

// Config holds configuration for the Gemini generator.
type Config struct {
	// APIKey authenticates against the Gemini API.
	APIKey string

	// ContentModel is the model for the primary artifact call.
	ContentModel string

	// ResearchModel is the model for the research call.
	ResearchModel string
}

// DefaultConfig returns a Config with the default model names. The
// API key must still be supplied by the caller.
func DefaultConfig() Config {
	return Config{
		ContentModel:  DefaultContentModel,
		ResearchModel: DefaultResearchModel,
	}
}

// Generator calls the Gemini API for both generation paths.
//
// Generator implements material.Generator.
type Generator struct {
	cfg    Config
	client *genai.Client
	log    *slog.Logger
}

// NewGenerator creates a Gemini-backed generator.
func NewGenerator(ctx context.Context, cfg Config,
	log *slog.Logger) (*Generator, error) {

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: missing API key")
	}
	if cfg.ContentModel == "" {
		cfg.ContentModel = DefaultContentModel
	}
	if cfg.ResearchModel == "" {
		cfg.ResearchModel = DefaultResearchModel
	}
	if log == nil {
		log = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Generator{
		cfg:    cfg,
		client: client,
		log:    log.With("component", "genai"),
	}, nil
}

// GenerateContent produces the structured primary artifact.
func (g *Generator) GenerateContent(ctx context.Context,
	req material.GenerateRequest) (*material.Content, error) {

	prompt := buildContentPrompt(req)

	resp, err := g.client.Models.GenerateContent(
		ctx, g.cfg.ContentModel, genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   contentSchema,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("generate content: empty response")
	}

	var content material.Content
	if err := json.Unmarshal([]byte(text), &content); err != nil {
		return nil, fmt.Errorf("generate content: decode "+
			"response: %w", err)
	}
	if err := content.Validate(); err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	g.log.Debug("Generated study content",
		"subject", req.SubjectName,
		"key_points", len(content.KeyPoints),
		"flashcards", len(content.Flashcards),
		"quiz", len(content.Quiz),
	)

	return &content, nil
}

// FetchResearch produces the free-text research digest for a topic.
func (g *Generator) FetchResearch(ctx context.Context, topic string) (
	string, error) {

	prompt := buildResearchPrompt(topic)

	resp, err := g.client.Models.GenerateContent(
		ctx, g.cfg.ResearchModel, genai.Text(prompt),
		&genai.GenerateContentConfig{
			Tools: []*genai.Tool{{
				GoogleSearch: &genai.GoogleSearch{},
			}},
		},
	)
	if err != nil {
		return "", fmt.Errorf("fetch research: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("fetch research: empty response")
	}

	return text, nil
}

var _ material.Generator = (*Generator)(nil)
