package persona

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/PabloGalante/practerview-agent/internal/domain"
)

var (
	ErrMetadataAbsent    = errors.New("participant metadata is empty")
	ErrMetadataMalformed = errors.New("participant metadata is not a JSON object")
	ErrTypeMissing       = errors.New("participant metadata has no interview type")
	ErrAlreadyObserved   = errors.New("interview type already observed")
)

// ParseMetadata extracts the interview type from a participant metadata payload.
// The payload is untrusted; every failure is reported as an error value.
func ParseMetadata(raw string) (domain.InterviewType, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrMetadataAbsent
	}

	var meta map[string]any
	if err := json.Unmarshal([]byte(raw), &meta); err != nil || meta == nil {
		return "", ErrMetadataMalformed
	}

	label, ok := meta["type"].(string)
	if !ok || strings.TrimSpace(label) == "" {
		return "", ErrTypeMissing
	}
	return domain.InterviewType(strings.TrimSpace(label)), nil
}

// Slot is a last-write-wins register for the candidate interview type.
// Room callbacks arrive on transport goroutines, hence the mutex.
type Slot struct {
	mu    sync.Mutex
	value domain.InterviewType
	set   bool
}

func NewSlot() *Slot {
	return &Slot{}
}

// Observe stores the type carried by metadata. Invalid metadata is ignored and
// the current value is kept; the parse error is returned for logging only.
func (s *Slot) Observe(metadata string) (domain.InterviewType, error) {
	t, err := ParseMetadata(metadata)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.value = t
	s.set = true
	s.mu.Unlock()
	return t, nil
}

// Current returns the latest observed type, or the default type when none was
// ever observed.
func (s *Slot) Current() domain.InterviewType {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return domain.DefaultInterviewType
	}
	return s.value
}

// Seed stores the type carried by metadata only while nothing has been
// observed, so it never overwrites a newer Observe.
func (s *Slot) Seed(metadata string) (domain.InterviewType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set {
		return "", ErrAlreadyObserved
	}

	t, err := ParseMetadata(metadata)
	if err != nil {
		return "", err
	}
	s.value = t
	s.set = true
	return t, nil
}
