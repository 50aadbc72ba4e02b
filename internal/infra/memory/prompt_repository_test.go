package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"care-companion/internal/domain"
)

func TestPromptRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		PromptLoader: NewStaticPromptLoader(map[string][]domain.Prompt{
			"senior-1": samplePrompts(),
		}),
	}
	repo := NewPromptRepository(loader, time.Minute)

	if _, err := repo.GetPrompts(context.Background(), "senior-1"); err != nil {
		t.Fatalf("get prompts: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetPrompts(context.Background(), "senior-1"); err != nil {
		t.Fatalf("get prompts 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestPromptRepositoryExpires(t *testing.T) {
	loader := &countingLoader{
		PromptLoader: NewStaticPromptLoader(map[string][]domain.Prompt{
			"senior-1": samplePrompts(),
		}),
	}
	repo := NewPromptRepository(loader, time.Minute)
	now := time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetPrompts(context.Background(), "senior-1")
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetPrompts(context.Background(), "senior-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, got %d calls", loader.calls)
	}
}

func TestPromptRepositoryAnswers(t *testing.T) {
	repo := NewPromptRepository(NewStaticPromptLoader(map[string][]domain.Prompt{
		"senior-1": samplePrompts(),
	}), time.Minute)

	caption, err := repo.GetAnswer(context.Background(), "p2")
	if err != nil {
		t.Fatalf("answer from loader: %v", err)
	}
	if caption != "Daughter Jiyoung" {
		t.Fatalf("unexpected caption %q", caption)
	}

	if _, err := repo.GetAnswer(context.Background(), "missing"); err != domain.ErrPromptNotFound {
		t.Fatalf("expected prompt not found, got %v", err)
	}
}

func TestPromptRepositoryUnknownSubject(t *testing.T) {
	repo := NewPromptRepository(NewStaticPromptLoader(nil), time.Minute)
	if _, err := repo.GetPrompts(context.Background(), "nobody"); err != domain.ErrSubjectNotFound {
		t.Fatalf("expected subject not found, got %v", err)
	}
}

type countingLoader struct {
	PromptLoader
	calls int
}

func (l *countingLoader) LoadPrompts(ctx context.Context, subjectID string) ([]domain.Prompt, error) {
	l.calls++
	return l.PromptLoader.LoadPrompts(ctx, subjectID)
}

func samplePrompts() []domain.Prompt {
	return []domain.Prompt{
		{ID: "p1", ImageURL: "/photos/1.jpg", Caption: "Grandson Minsu"},
		{ID: "p2", ImageURL: "/photos/2.jpg", Caption: "Daughter Jiyoung", Distractors: []string{"Niece Sora"}},
	}
}

func TestPromptRepositoryConcurrentSubjects(t *testing.T) {
	sets := make(map[string][]domain.Prompt)
	for i := 0; i < 32; i++ {
		id := fmt.Sprintf("senior-%d", i)
		sets[id] = []domain.Prompt{{ID: id + "-p1", Caption: "Caption " + id}}
	}
	repo := NewPromptRepository(NewStaticPromptLoader(sets), time.Minute)

	var wg sync.WaitGroup
	errs := make(chan error, len(sets))
	for id := range sets {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := repo.GetPrompts(context.Background(), id); err != nil {
				errs <- err
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("get prompts: %v", err)
	}

	for i := 0; i < 100; i++ {
		d := repo.ttlWithJitter()
		if d < time.Minute || d > time.Minute+6*time.Second {
			t.Fatalf("jittered ttl out of range: %v", d)
		}
	}
}
