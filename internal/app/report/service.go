// Package report builds performance reports from interview transcripts.
package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/PabloGalante/practerview-agent/internal/app/agentflow"
	"github.com/PabloGalante/practerview-agent/internal/app/tools"
	"github.com/PabloGalante/practerview-agent/internal/domain"
	"github.com/PabloGalante/practerview-agent/internal/observability"
)

var (
	ErrNoTranscript   = errors.New("no transcript for room")
	ErrReportNotSaved = errors.New("report flow did not save a report")
)

const transcriptLimit = 200

// Service runs the report flow and reads saved reports.
type Service struct {
	transcripts  domain.TranscriptStore
	reports      domain.ReportStore
	orchestrator *agentflow.Orchestrator
}

func NewService(llm domain.LLMClient, transcripts domain.TranscriptStore, reports domain.ReportStore) *Service {
	return &Service{
		transcripts:  transcripts,
		reports:      reports,
		orchestrator: agentflow.NewReportOrchestrator(llm, tools.NewReportTool(reports)),
	}
}

type GenerateInput struct {
	Room          domain.RoomName
	InterviewType domain.InterviewType
	// Focus is passed to the assessor as an extra instruction.
	Focus string
}

// Generate reviews the room's transcript and saves a new report.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*domain.Report, error) {
	items, err := s.transcripts.ItemsByRoom(in.Room, transcriptLimit)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNoTranscript
	}

	t := in.InterviewType
	if t == "" {
		t = domain.DefaultInterviewType
	}

	log := observability.LoggerFromContext(ctx).With("room", in.Room, "type", t)
	log.Info("generating report", "items", len(items))

	res, err := s.orchestrator.Run(ctx, in.Focus, domain.ConversationContext{
		Room:          in.Room,
		InterviewType: t,
		History:       items,
	})
	if err != nil {
		return nil, err
	}

	id := domain.ReportID(res.Artifacts["report_id"])
	saved, err := s.reports.ListReportsByRoom(in.Room, 0)
	if err != nil {
		return nil, fmt.Errorf("load reports: %w", err)
	}
	for i := len(saved) - 1; i >= 0; i-- {
		if saved[i].ID == id {
			return saved[i], nil
		}
	}
	return nil, ErrReportNotSaved
}

// History returns the last `limit` reports for a room.
// If limit <= 0, a reasonable default value is used.
func (s *Service) History(ctx context.Context, room domain.RoomName, limit int) ([]*domain.Report, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.reports.ListReportsByRoom(room, limit)
}
