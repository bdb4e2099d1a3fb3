// Package translator turns a free-text question into a validated query plan.
//
// Two planners share one contract: the deterministic Heuristic (rule
// tables) and Remote, which asks a hosted language model through a
// Completer backend and falls back to the heuristic plan on any failure.
// Neither ever sees row data, only the catalog and its known values.
package translator

import (
	"context"
	"errors"

	"github.com/spektr-org/shipinsight/engine"
	"github.com/spektr-org/shipinsight/schema"
)

// Translator converts a question into a plan. It never fails: every
// problem is reported through TranslateResult.Note.
type Translator interface {
	Translate(ctx context.Context, question string, sch schema.Config) *TranslateResult
}

// Plan sources.
const (
	SourceRemote    = "remote"
	SourceHeuristic = "heuristic"
)

// TranslateResult is a validated plan plus where it came from.
type TranslateResult struct {
	Plan   engine.Plan `json:"plan"`
	Source string      `json:"source"`
	Model  string      `json:"model,omitempty"`
	Note   string      `json:"note,omitempty"`
}

// ============================================================================
// REMOTE BACKENDS
// ============================================================================

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer sends a conversation to a hosted model and returns the raw
// reply text. Implementations: Router (OpenAI-compatible HTTP) and Gemini.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
	Model() string
}

var (
	// ErrNoToken means the backend has no credentials configured.
	ErrNoToken = errors.New("no API token configured")
	// ErrEmptyReply means the backend answered without any content.
	ErrEmptyReply = errors.New("empty reply from model")
	// ErrNoJSON means a reply contained no decodable JSON object.
	ErrNoJSON = errors.New("no JSON object in reply")
)
