package translator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestGeminiContents(t *testing.T) {
	system, contents := geminiContents([]Message{
		{Role: RoleSystem, Content: "rules"},
		{Role: RoleUser, Content: "example question"},
		{Role: RoleAssistant, Content: `{"filters":{}}`},
		{Role: RoleSystem, Content: "more rules"},
		{Role: RoleUser, Content: "real question"},
	})

	require.NotNil(t, system)
	require.Len(t, system.Parts, 1)
	assert.Equal(t, "rules\n\nmore rules", system.Parts[0].Text)

	require.Len(t, contents, 3)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, `{"filters":{}}`, contents[1].Parts[0].Text)
	assert.Equal(t, "real question", contents[2].Parts[0].Text)
}

func TestGeminiContents_NoSystem(t *testing.T) {
	system, contents := geminiContents([]Message{{Role: RoleUser, Content: "q"}})

	assert.Nil(t, system)
	assert.Len(t, contents, 1)
}

func TestGemini_NoKey(t *testing.T) {
	g, err := NewGemini(context.Background(), GeminiConfig{})
	require.NoError(t, err)

	assert.Equal(t, DefaultGeminiModel, g.Model())
	_, err = g.Complete(context.Background(), testMessages)
	assert.ErrorIs(t, err, ErrNoToken)
}
