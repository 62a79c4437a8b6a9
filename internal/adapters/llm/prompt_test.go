package llm_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/practerview-agent/internal/adapters/llm"
	"github.com/PabloGalante/practerview-agent/internal/domain"
)

func TestBuildPromptLabelsSpeakers(t *testing.T) {
	p := llm.BuildPrompt("Summarize.", domain.ConversationContext{
		InterviewType: "backend",
		History: []domain.TranscriptItem{
			{Author: domain.RoleAgent, Text: "Tell me about yourself."},
			{Author: domain.RoleUser, Text: "I write Go services."},
		},
	})

	assert.Contains(t, p.System, "Interview type: backend")
	assert.Contains(t, p.User, "Interviewer: Tell me about yourself.\nCandidate: I write Go services.\n")
	assert.True(t, strings.HasSuffix(p.User, "Task:\nSummarize."))
}

func TestBuildPromptEmptyTranscript(t *testing.T) {
	p := llm.BuildPrompt("x", domain.ConversationContext{})
	assert.Contains(t, p.User, "(empty)")
	assert.Contains(t, p.System, "Interview type: default")
}

func TestMockLLMIsDeterministic(t *testing.T) {
	m := llm.NewMockLLM()
	convCtx := domain.ConversationContext{
		InterviewType: "hr",
		History: []domain.TranscriptItem{
			{Author: domain.RoleAgent, Text: "q"},
			{Author: domain.RoleUser, Text: "a"},
		},
	}

	a, err := m.GenerateReply(context.Background(), "Write the report.\nmore", convCtx)
	require.NoError(t, err)
	b, err := m.GenerateReply(context.Background(), "Write the report.\nmore", convCtx)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, "RATING: mixed\nReviewed 1 candidate answers in a hr interview. Write the report.", a)

	empty, err := m.GenerateReply(context.Background(), "x", domain.ConversationContext{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(empty, "RATING: unscored\n"))
}
