package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/PabloGalante/practerview-agent/internal/domain"
)

// MockLLM answers deterministically from the prompt and context. Used in
// local mode and tests.
type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) GenerateReply(ctx context.Context, prompt string, convCtx domain.ConversationContext) (string, error) {
	candidate := 0
	for _, item := range convCtx.History {
		if item.Author == domain.RoleUser {
			candidate++
		}
	}

	rating := domain.RatingMixed
	if candidate == 0 {
		rating = domain.RatingUnscored
	}

	t := convCtx.InterviewType
	if t == "" {
		t = domain.DefaultInterviewType
	}

	task, _, _ := strings.Cut(strings.TrimSpace(prompt), "\n")
	return fmt.Sprintf("RATING: %s\nReviewed %d candidate answers in a %s interview. %s",
		rating, candidate, t, task), nil
}
