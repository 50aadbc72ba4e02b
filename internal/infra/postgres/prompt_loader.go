package postgres

import (
	"context"
	"errors"
	"fmt"

	"care-companion/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// PromptLoader loads photo prompts from Postgres.
type PromptLoader struct {
	pool *pgxpool.Pool
}

func NewPromptLoader(pool *pgxpool.Pool) *PromptLoader {
	return &PromptLoader{pool: pool}
}

func (l *PromptLoader) LoadPrompts(ctx context.Context, subjectID string) ([]domain.Prompt, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, image_url, caption, distractors
		FROM photos
		WHERE subject_id=$1
		ORDER BY position, id`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	defer rows.Close()

	prompts := make([]domain.Prompt, 0)
	for rows.Next() {
		var p domain.Prompt
		if err := rows.Scan(&p.ID, &p.ImageURL, &p.Caption, &p.Distractors); err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	return prompts, nil
}

func (l *PromptLoader) LoadPrompt(ctx context.Context, promptID string) (domain.Prompt, error) {
	var p domain.Prompt
	err := l.pool.QueryRow(ctx, `
		SELECT id, image_url, caption, distractors
		FROM photos
		WHERE id=$1`, promptID).Scan(&p.ID, &p.ImageURL, &p.Caption, &p.Distractors)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Prompt{}, domain.ErrPromptNotFound
	}
	if err != nil {
		return domain.Prompt{}, fmt.Errorf("load prompt: %w", err)
	}
	return p, nil
}
