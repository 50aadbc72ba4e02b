package app

import (
	"context"
	"strings"

	"care-companion/internal/domain"
)

// ContentService provides prompts and checks answers for them.
type ContentService interface {
	FetchPrompts(ctx context.Context, subjectID string) ([]domain.Prompt, error)
	VerifyAnswer(ctx context.Context, promptID, answer string) (bool, error)
}

// IdentityService resolves the subject the caller acts for.
type IdentityService interface {
	CurrentSubjectID(ctx context.Context) (string, error)
}

// GameFactory returns the collaborators for a game played by subjectID.
// token is the bearer credential presented by the device, if any.
type GameFactory func(subjectID, token string) (ContentService, IdentityService)

// PromptRepository loads prompts and their answers (from cache/backing store).
type PromptRepository interface {
	GetPrompts(ctx context.Context, subjectID string) ([]domain.Prompt, error)
	GetAnswer(ctx context.Context, promptID string) (string, error)
}

// FixedIdentity always resolves to the same subject.
type FixedIdentity string

func (f FixedIdentity) CurrentSubjectID(context.Context) (string, error) {
	if strings.TrimSpace(string(f)) == "" {
		return "", domain.ErrSubjectNotFound
	}
	return string(f), nil
}

// LocalContent serves prompts from a repository and verifies answers
// against the stored caption.
type LocalContent struct {
	prompts PromptRepository
}

func NewLocalContent(prompts PromptRepository) *LocalContent {
	return &LocalContent{prompts: prompts}
}

func (l *LocalContent) FetchPrompts(ctx context.Context, subjectID string) ([]domain.Prompt, error) {
	return l.prompts.GetPrompts(ctx, subjectID)
}

func (l *LocalContent) VerifyAnswer(ctx context.Context, promptID, answer string) (bool, error) {
	caption, err := l.prompts.GetAnswer(ctx, promptID)
	if err != nil {
		return false, err
	}
	return normalizeAnswer(caption) == normalizeAnswer(answer), nil
}

// LocalGames binds every game to content and to the connecting subject.
func LocalGames(content ContentService) GameFactory {
	return func(subjectID, _ string) (ContentService, IdentityService) {
		return content, FixedIdentity(subjectID)
	}
}

// normalizeAnswer folds case and collapses whitespace so spoken answers
// compare equal to captions.
func normalizeAnswer(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
