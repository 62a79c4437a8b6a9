package memory

import (
	"sync"

	"github.com/PabloGalante/practerview-agent/internal/domain"
)

// TranscriptStore is an in-memory domain.TranscriptStore. Items live until
// the room is dropped.
type TranscriptStore struct {
	mu    sync.RWMutex
	items map[domain.RoomName][]domain.TranscriptItem
}

func NewTranscriptStore() *TranscriptStore {
	return &TranscriptStore{
		items: make(map[domain.RoomName][]domain.TranscriptItem),
	}
}

func (s *TranscriptStore) AppendItem(item domain.TranscriptItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[item.Room] = append(s.items[item.Room], item)
	return nil
}

// ItemsByRoom returns the last `limit` items for room, oldest first.
// If limit <= 0, returns all.
func (s *TranscriptStore) ItemsByRoom(room domain.RoomName, limit int) ([]domain.TranscriptItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.items[room]
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}

	out := make([]domain.TranscriptItem, len(items))
	copy(out, items)
	return out, nil
}

// Drop forgets every item of room.
func (s *TranscriptStore) Drop(room domain.RoomName) {
	s.mu.Lock()
	delete(s.items, room)
	s.mu.Unlock()
}
