package report_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/practerview-agent/internal/adapters/llm"
	"github.com/PabloGalante/practerview-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/practerview-agent/internal/app/report"
	"github.com/PabloGalante/practerview-agent/internal/domain"
)

type failingLLM struct{}

func (failingLLM) GenerateReply(context.Context, string, domain.ConversationContext) (string, error) {
	return "", errors.New("quota exceeded")
}

func seed(t *testing.T, store *memory.TranscriptStore, room domain.RoomName) {
	t.Helper()
	for _, item := range []domain.TranscriptItem{
		{Room: room, Author: domain.RoleAgent, Text: "Welcome. Tell me about yourself."},
		{Room: room, Author: domain.RoleUser, Text: "I build payment APIs in Go."},
		{Room: room, Author: domain.RoleAgent, Text: "How do you handle retries?"},
		{Room: room, Author: domain.RoleUser, Text: "Idempotency keys and backoff."},
	} {
		require.NoError(t, store.AppendItem(item))
	}
}

func TestGenerateSavesReport(t *testing.T) {
	transcripts := memory.NewTranscriptStore()
	reports := memory.NewReportStore()
	seed(t, transcripts, "backend-interview")

	svc := report.NewService(llm.NewMockLLM(), transcripts, reports)

	r, err := svc.Generate(context.Background(), report.GenerateInput{
		Room:          "backend-interview",
		InterviewType: "backend",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, domain.RoomName("backend-interview"), r.Room)
	assert.Equal(t, domain.InterviewType("backend"), r.InterviewType)
	assert.Equal(t, domain.RatingMixed, r.Rating)
	assert.Equal(t, 4, r.Items)
	assert.Contains(t, r.Summary, "Reviewed 2 candidate answers in a backend interview.")
	assert.Contains(t, r.Assessment, "RATING: mixed")

	history, err := svc.History(context.Background(), "backend-interview", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, r.ID, history[0].ID)
}

func TestGenerateWithoutTranscript(t *testing.T) {
	svc := report.NewService(llm.NewMockLLM(), memory.NewTranscriptStore(), memory.NewReportStore())

	_, err := svc.Generate(context.Background(), report.GenerateInput{Room: "hr-interview"})
	assert.ErrorIs(t, err, report.ErrNoTranscript)
}

func TestGenerateDefaultsType(t *testing.T) {
	transcripts := memory.NewTranscriptStore()
	seed(t, transcripts, "r")

	r, err := report.NewService(llm.NewMockLLM(), transcripts, memory.NewReportStore()).
		Generate(context.Background(), report.GenerateInput{Room: "r"})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultInterviewType, r.InterviewType)
}

func TestGenerateLLMFailure(t *testing.T) {
	transcripts := memory.NewTranscriptStore()
	reports := memory.NewReportStore()
	seed(t, transcripts, "r")

	_, err := report.NewService(failingLLM{}, transcripts, reports).
		Generate(context.Background(), report.GenerateInput{Room: "r"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent assessor failed")

	saved, _ := reports.ListReportsByRoom("r", 0)
	assert.Empty(t, saved)
}
