package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"care-companion/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ResultStore keeps finished games in a capped list per subject:
// LPUSH care:results:{subjectID} <json>, trimmed to max entries.
type ResultStore struct {
	client *redis.Client
	max    int
}

func NewResultStore(client *redis.Client, max int) *ResultStore {
	if max <= 0 {
		max = 20
	}
	return &ResultStore{client: client, max: max}
}

func (s *ResultStore) Record(ctx context.Context, record domain.ResultRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	key := resultsKey(record.SubjectID)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, raw)
	pipe.LTrim(ctx, key, 0, int64(s.max-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record result: %w", err)
	}
	return nil
}

func (s *ResultStore) Recent(ctx context.Context, subjectID string, limit int) ([]domain.ResultRecord, error) {
	if limit <= 0 || limit > s.max {
		limit = s.max
	}
	items, err := s.client.LRange(ctx, resultsKey(subjectID), 0, int64(limit-1)).Result()
	if err != nil && !isMiss(err) {
		return nil, fmt.Errorf("list results: %w", err)
	}
	records := make([]domain.ResultRecord, 0, len(items))
	for _, item := range items {
		var record domain.ResultRecord
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func resultsKey(subjectID string) string {
	return "care:results:" + subjectID
}
