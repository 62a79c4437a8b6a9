package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PabloGalante/practerview-agent/internal/domain"
)

// ReportTool uses a domain.ReportStore to save interview reports.
type ReportTool struct {
	store domain.ReportStore
	now   func() time.Time
}

func NewReportTool(store domain.ReportStore) *ReportTool {
	return &ReportTool{
		store: store,
		now:   time.Now,
	}
}

func (t *ReportTool) Name() string {
	return "report_store"
}

// Call expects an input with this shape:
//
//	{
//	  "assessment": "notes...",
//	  "summary": "report text...",
//	  "rating": "mixed",
//	  "items": 12
//	}
//
// Room and InterviewType come in ToolContext.
func (t *ReportTool) Call(
	ctx context.Context,
	tctx ToolContext,
	input map[string]any,
) (map[string]any, error) {
	if tctx.Room == "" {
		return nil, fmt.Errorf("report_store: missing Room in ToolContext")
	}

	report := &domain.Report{
		Room:          domain.RoomName(tctx.Room),
		InterviewType: domain.InterviewType(tctx.InterviewType),
		CreatedAt:     t.now(),
		Assessment:    getString(input, "assessment"),
		Summary:       getString(input, "summary"),
		Rating:        ParseRating(getString(input, "rating")),
		Items:         getInt(input, "items"),
	}

	if err := t.store.AppendReport(report); err != nil {
		return nil, fmt.Errorf("report_store: append failed: %w", err)
	}

	return map[string]any{
		"status":     "ok",
		"report_id":  string(report.ID),
		"room":       string(report.Room),
		"rating":     string(report.Rating),
		"created_at": report.CreatedAt,
	}, nil
}

// ParseRating maps free text to a Rating.
func ParseRating(s string) domain.Rating {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strong":
		return domain.RatingStrong
	case "mixed":
		return domain.RatingMixed
	case "weak":
		return domain.RatingWeak
	default:
		return domain.RatingUnscored
	}
}

// --- internal helpers --- //

func getString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
