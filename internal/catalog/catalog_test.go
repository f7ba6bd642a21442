package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"trivia-live-service/internal/domain"
)

type countingLoader struct {
	Loader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	l.calls++
	return l.Loader.LoadQuestions(ctx)
}

func TestCatalogCachesQuestionBank(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{Loader: NewStaticLoader([]domain.Question{
		{ID: 1, Prompt: "p", Correct: "A"},
		{ID: 2, Prompt: "q", Correct: "B"},
	})}
	cat := New(loader, time.Minute)

	q, err := cat.Question(ctx, 1)
	if err != nil {
		t.Fatalf("question: %v", err)
	}
	if q.Correct != "A" {
		t.Fatalf("unexpected question %+v", q)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}

	// second lookup hits the cache
	if _, err := cat.Question(ctx, 2); err != nil {
		t.Fatalf("question: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

func TestCatalogUnknownQuestion(t *testing.T) {
	cat := New(NewStaticLoader([]domain.Question{{ID: 1}}), time.Minute)
	if _, err := cat.Question(context.Background(), 99); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestStrippedDropsCorrectOption(t *testing.T) {
	q := domain.Question{
		ID:     1,
		Prompt: "p",
		Options: []domain.Option{
			{Key: "A", Text: "a"},
			{Key: "B", Text: "b"},
		},
		Correct: "B",
	}
	stripped := q.Stripped()
	if stripped.ID != 1 || len(stripped.Options) != 2 {
		t.Fatalf("unexpected stripped question %+v", stripped)
	}
}
