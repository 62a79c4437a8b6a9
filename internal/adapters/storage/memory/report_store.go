package memory

import (
	"sync"
	"time"

	"github.com/PabloGalante/practerview-agent/internal/domain"
)

// ReportStore is a simple in-memory implementation of domain.ReportStore.
// It is NOT persistent.
type ReportStore struct {
	mu      sync.RWMutex
	reports map[domain.ReportID]*domain.Report
	byRoom  map[domain.RoomName][]domain.ReportID
}

func NewReportStore() *ReportStore {
	return &ReportStore{
		reports: make(map[domain.ReportID]*domain.Report),
		byRoom:  make(map[domain.RoomName][]domain.ReportID),
	}
}

// AppendReport saves a report, assigning an ID when it has none.
func (s *ReportStore) AppendReport(report *domain.Report) error {
	if report == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if report.ID == "" {
		report.ID = domain.ReportID(generateID(time.Now()))
	}

	s.reports[report.ID] = report
	s.byRoom[report.Room] = append(s.byRoom[report.Room], report.ID)
	return nil
}

// ListReportsByRoom returns the last `limit` reports for a room, newest last.
// If limit <= 0, returns all.
func (s *ReportStore) ListReportsByRoom(room domain.RoomName, limit int) ([]*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byRoom[room]
	if limit <= 0 || limit > len(ids) {
		limit = len(ids)
	}

	out := make([]*domain.Report, 0, limit)
	for _, id := range ids[len(ids)-limit:] {
		if r, ok := s.reports[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func generateID(t time.Time) string {
	return "rep-" + t.Format("20060102150405.000000000")
}
