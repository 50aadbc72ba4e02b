package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"care-companion/internal/domain"
	"care-companion/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// PromptRepository caches prompt sets in Redis and falls back to a loader on cache miss.
// Prompt sets are stored as: SET  care:prompts:{subjectID} <json>
// Captions are stored as:    HSET care:answers {promptID} {caption}
type PromptRepository struct {
	client *redis.Client
	loader memory.PromptLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewPromptRepository(client *redis.Client, loader memory.PromptLoader, ttl time.Duration) *PromptRepository {
	return &PromptRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *PromptRepository) GetPrompts(ctx context.Context, subjectID string) ([]domain.Prompt, error) {
	if prompts, ok := r.cached(ctx, subjectID); ok {
		return prompts, nil
	}

	result, err, _ := r.sf.Do(subjectID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if prompts, ok := r.cached(ctx, subjectID); ok {
			return prompts, nil
		}

		prompts, err := r.loader.LoadPrompts(ctx, subjectID)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(prompts)
		if err != nil {
			return nil, err
		}
		pipe := r.client.Pipeline()
		pipe.Set(ctx, promptsKey(subjectID), raw, r.ttlWithJitter())
		for _, p := range prompts {
			pipe.HSet(ctx, answersKey, p.ID, p.Caption)
		}
		_, _ = pipe.Exec(ctx)

		return prompts, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Prompt), nil
}

// GetAnswer reads the caption of promptID from Redis, loading it on a miss.
func (r *PromptRepository) GetAnswer(ctx context.Context, promptID string) (string, error) {
	caption, err := r.client.HGet(ctx, answersKey, promptID).Result()
	if err == nil {
		return caption, nil
	}

	prompt, err := r.loader.LoadPrompt(ctx, promptID)
	if err != nil {
		return "", err
	}
	_ = r.client.HSet(ctx, answersKey, prompt.ID, prompt.Caption).Err()
	return prompt.Caption, nil
}

func (r *PromptRepository) cached(ctx context.Context, subjectID string) ([]domain.Prompt, bool) {
	raw, err := r.client.Get(ctx, promptsKey(subjectID)).Bytes()
	if err != nil {
		return nil, false
	}
	var prompts []domain.Prompt
	if err := json.Unmarshal(raw, &prompts); err != nil {
		return nil, false
	}
	return prompts, true
}

const answersKey = "care:answers"

func promptsKey(subjectID string) string {
	return "care:prompts:" + subjectID
}

func (r *PromptRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// isMiss reports whether err only means the key is absent.
func isMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}
