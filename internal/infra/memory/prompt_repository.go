package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"care-companion/internal/domain"
	"golang.org/x/sync/singleflight"
)

// PromptLoader fetches prompts from a backing store (e.g., Postgres).
type PromptLoader interface {
	LoadPrompts(ctx context.Context, subjectID string) ([]domain.Prompt, error)
	LoadPrompt(ctx context.Context, promptID string) (domain.Prompt, error)
}

// PromptRepository caches prompt sets with TTL to avoid repeated DB hits.
type PromptRepository struct {
	loader PromptLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu      sync.RWMutex
	cache   map[string]cachedPrompts
	answers map[string]string
}

type cachedPrompts struct {
	prompts   []domain.Prompt
	expiresAt time.Time
}

func NewPromptRepository(loader PromptLoader, ttl time.Duration) *PromptRepository {
	return &PromptRepository{
		loader:  loader,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:   make(map[string]cachedPrompts),
		answers: make(map[string]string),
	}
}

func (r *PromptRepository) GetPrompts(ctx context.Context, subjectID string) ([]domain.Prompt, error) {
	if prompts, ok := r.cached(subjectID); ok {
		return prompts, nil
	}

	result, err, _ := r.sf.Do(subjectID, func() (interface{}, error) {
		if prompts, ok := r.cached(subjectID); ok {
			return prompts, nil
		}

		prompts, err := r.loader.LoadPrompts(ctx, subjectID)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[subjectID] = cachedPrompts{
			prompts:   prompts,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		for _, p := range prompts {
			r.answers[p.ID] = p.Caption
		}
		r.mu.Unlock()
		return prompts, nil
	})
	if err != nil {
		return nil, err
	}
	return clonePrompts(result.([]domain.Prompt)), nil
}

// GetAnswer returns the caption of promptID, loading the prompt on a miss.
func (r *PromptRepository) GetAnswer(ctx context.Context, promptID string) (string, error) {
	r.mu.RLock()
	caption, ok := r.answers[promptID]
	r.mu.RUnlock()
	if ok {
		return caption, nil
	}

	prompt, err := r.loader.LoadPrompt(ctx, promptID)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	r.answers[prompt.ID] = prompt.Caption
	r.mu.Unlock()
	return prompt.Caption, nil
}

func (r *PromptRepository) cached(subjectID string) ([]domain.Prompt, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[subjectID]; ok && entry.expiresAt.After(now) {
		return clonePrompts(entry.prompts), true
	}
	return nil, false
}

// StaticPromptLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticPromptLoader struct {
	prompts map[string][]domain.Prompt
}

func NewStaticPromptLoader(prompts map[string][]domain.Prompt) *StaticPromptLoader {
	return &StaticPromptLoader{prompts: prompts}
}

func (l *StaticPromptLoader) LoadPrompts(_ context.Context, subjectID string) ([]domain.Prompt, error) {
	if prompts, ok := l.prompts[subjectID]; ok {
		return prompts, nil
	}
	return nil, domain.ErrSubjectNotFound
}

func (l *StaticPromptLoader) LoadPrompt(_ context.Context, promptID string) (domain.Prompt, error) {
	for _, prompts := range l.prompts {
		for _, p := range prompts {
			if p.ID == promptID {
				return p, nil
			}
		}
	}
	return domain.Prompt{}, domain.ErrPromptNotFound
}

func (r *PromptRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func clonePrompts(prompts []domain.Prompt) []domain.Prompt {
	if prompts == nil {
		return nil
	}
	return append(make([]domain.Prompt, 0, len(prompts)), prompts...)
}
