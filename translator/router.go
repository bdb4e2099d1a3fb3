package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spektr-org/shipinsight/logging"
)

// ============================================================================
// ROUTER BACKEND — OpenAI-compatible chat/completions over HTTP
// ============================================================================
// Chat is tried first. When the model rejects the chat shape (HTTP 400
// "not a chat model", "model_not_supported", "response_format") or answers
// with no content, the same conversation is sent once more, flattened, to
// the plain completions endpoint. There is no other retry.
// ============================================================================

// Router defaults.
const (
	DefaultRouterBaseURL = "https://router.huggingface.co/v1"
	DefaultRouterModel   = "openai/gpt-oss-20b:fireworks-ai"

	chatMaxTokens       = 512
	completionMaxTokens = 768
	maxReplyBytes       = 4 << 20
)

// RouterConfig configures a Router.
type RouterConfig struct {
	BaseURL    string
	Model      string
	Token      string
	Timeout    time.Duration // applied when the caller's context has no deadline
	HTTPClient *http.Client
}

// Router talks to an OpenAI-compatible inference router.
type Router struct {
	cfg    RouterConfig
	client *http.Client
	logger *zap.Logger
}

// HTTPError is a non-2xx reply from the router.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("router returned status %d: %.200s", e.Status, e.Body)
}

// NewRouter creates a router backend. A nil logger disables logging.
func NewRouter(cfg RouterConfig, logger *zap.Logger) *Router {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultRouterBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultRouterModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Router{cfg: cfg, client: client, logger: logging.Default(logger).Named("router")}
}

// Model implements Completer.
func (r *Router) Model() string { return r.cfg.Model }

// ── Wire types ────────────────────────────────────────────────────────────

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens"`
	Temperature    float64         `json:"temperature"`
	Stream         bool            `json:"stream"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Stream      bool    `json:"stream"`
}

type routerReply struct {
	Choices []struct {
		Text    string `json:"text"`
		Message struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"message"`
	} `json:"choices"`
	GeneratedText string `json:"generated_text"`
}

// content returns the first non-empty text field of a reply.
func (r routerReply) content() string {
	if len(r.Choices) > 0 {
		c := r.Choices[0]
		for _, s := range []string{c.Text, c.Message.Content, c.Message.ReasoningContent} {
			if strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return strings.TrimSpace(r.GeneratedText)
}

// ── Completer ─────────────────────────────────────────────────────────────

// Complete implements Completer.
func (r *Router) Complete(ctx context.Context, messages []Message) (string, error) {
	if r.cfg.Token == "" {
		return "", ErrNoToken
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	reply, err := r.post(ctx, "/chat/completions", chatRequest{
		Model:          r.cfg.Model,
		Messages:       messages,
		MaxTokens:      chatMaxTokens,
		Stream:         false,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	switch {
	case err == nil && reply != "":
		return reply, nil
	case err == nil:
		r.logger.Debug("chat reply was empty, trying completions", zap.String("model", r.cfg.Model))
	case isChatShapeError(err):
		r.logger.Debug("model rejected chat request, trying completions",
			zap.String("model", r.cfg.Model), zap.Error(err))
	default:
		return "", err
	}

	reply, err = r.post(ctx, "/completions", completionRequest{
		Model:     r.cfg.Model,
		Prompt:    FlattenMessages(messages),
		MaxTokens: completionMaxTokens,
		Stream:    false,
	})
	if err != nil {
		return "", err
	}
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

func (r *Router) post(ctx context.Context, path string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.cfg.Token)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("router request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", fmt.Errorf("read router reply: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &HTTPError{Status: resp.StatusCode, Body: string(data)}
	}

	var reply routerReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return "", fmt.Errorf("decode router reply: %w", err)
	}
	return reply.content(), nil
}

// isChatShapeError reports whether the router refused the chat request shape
// rather than failing outright.
func isChatShapeError(err error) bool {
	var he *HTTPError
	if !errors.As(err, &he) || he.Status != http.StatusBadRequest {
		return false
	}
	body := strings.ToLower(he.Body)
	for _, marker := range []string{"not a chat model", "model_not_supported", "response_format"} {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}
