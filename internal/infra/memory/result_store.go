package memory

import (
	"context"
	"sync"

	"care-companion/internal/domain"
)

// ResultStore keeps the latest finished games per subject, newest first.
type ResultStore struct {
	max int

	mu      sync.RWMutex
	records map[string][]domain.ResultRecord
}

func NewResultStore(max int) *ResultStore {
	if max <= 0 {
		max = 20
	}
	return &ResultStore{max: max, records: make(map[string][]domain.ResultRecord)}
}

func (s *ResultStore) Record(_ context.Context, record domain.ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append([]domain.ResultRecord{record}, s.records[record.SubjectID]...)
	if len(list) > s.max {
		list = list[:s.max]
	}
	s.records[record.SubjectID] = list
	return nil
}

func (s *ResultStore) Recent(_ context.Context, subjectID string, limit int) ([]domain.ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.records[subjectID]
	if limit <= 0 || limit > len(list) {
		limit = len(list)
	}
	return append([]domain.ResultRecord(nil), list[:limit]...), nil
}
