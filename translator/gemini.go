package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// ============================================================================
// GEMINI BACKEND — google.golang.org/genai
// ============================================================================
// The system message becomes the system instruction. Few-shot pairs and
// the question become user/model turns. Replies are requested as JSON.
// ============================================================================

// DefaultGeminiModel is used when GeminiConfig.Model is empty.
const DefaultGeminiModel = "gemini-2.5-flash-lite"

// GeminiConfig configures a Gemini backend.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string // optional endpoint override
	Timeout time.Duration
}

// Gemini is a Completer backed by the Gemini API.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini creates a Gemini backend. An empty API key yields a backend
// whose every call fails with ErrNoToken.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	g := &Gemini{model: cfg.Model, timeout: cfg.Timeout}
	if cfg.APIKey == "" {
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

// Model implements Completer.
func (g *Gemini) Model() string { return g.model }

// Complete implements Completer.
func (g *Gemini) Complete(ctx context.Context, messages []Message) (string, error) {
	if g.client == nil {
		return "", ErrNoToken
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	system, contents := geminiContents(messages)
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
		MaxOutputTokens:  completionMaxTokens,
	}
	if system != nil {
		cfg.SystemInstruction = system
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

// geminiContents splits a conversation into the system instruction and the
// user/model turns. Several system messages are joined.
func geminiContents(messages []Message) (*genai.Content, []*genai.Content) {
	var system []string
	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) == 0 {
		return nil, contents
	}
	return genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser), contents
}
