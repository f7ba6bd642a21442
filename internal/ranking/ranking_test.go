package ranking_test

import (
	"testing"
	"time"

	"trivia-live-service/internal/domain"
	"trivia-live-service/internal/ranking"
)

func TestScoreRewardsSpeed(t *testing.T) {
	engine := ranking.NewEngine(20000)

	fast := engine.Score(domain.Response{IsCorrect: true, ElapsedMs: 3000})
	if fast != 2425 {
		t.Fatalf("expected 2425 for 3000ms, got %d", fast)
	}
	slow := engine.Score(domain.Response{IsCorrect: true, ElapsedMs: 15000})
	if slow >= fast {
		t.Fatalf("expected slower answer to score strictly lower, got fast=%d slow=%d", fast, slow)
	}
	if engine.Score(domain.Response{IsCorrect: false, ElapsedMs: 1000}) != 0 {
		t.Fatalf("incorrect response must contribute zero")
	}
	// elapsed beyond the window never goes negative
	if got := engine.Score(domain.Response{IsCorrect: true, ElapsedMs: 30000}); got != ranking.BaseAward {
		t.Fatalf("expected base award for overtime answer, got %d", got)
	}
}

func TestComputeExcludesIncorrectOnlyIdentities(t *testing.T) {
	engine := ranking.NewEngine(20000)
	responses := []domain.Response{
		{Identity: "a", QuestionID: 1, IsCorrect: true, ElapsedMs: 3000},
		{Identity: "b", QuestionID: 1, IsCorrect: false, ElapsedMs: 1000},
	}
	players := []domain.Player{
		{Identity: "a", DisplayName: "Alice"},
		{Identity: "b", DisplayName: "Bob"},
	}

	entries := engine.Compute(responses, players, 10)
	if len(entries) != 1 {
		t.Fatalf("expected only the correct answerer, got %+v", entries)
	}
	if entries[0].Identity != "a" || entries[0].Position != 1 || entries[0].Score != 2425 {
		t.Fatalf("unexpected entry %+v", entries[0])
	}
}

func TestComputeExcludesSoftDeleted(t *testing.T) {
	engine := ranking.NewEngine(20000)
	responses := []domain.Response{
		{Identity: "a", QuestionID: 1, IsCorrect: true, ElapsedMs: 3000},
		{Identity: "b", QuestionID: 1, IsCorrect: true, ElapsedMs: 1000},
	}
	players := []domain.Player{
		{Identity: "a", DisplayName: "Alice"},
		{Identity: "b", DisplayName: "Bob", SoftDeleted: true},
	}

	entries := engine.Compute(responses, players, 10)
	if len(entries) != 1 || entries[0].Identity != "a" {
		t.Fatalf("expected soft-deleted identity excluded, got %+v", entries)
	}
}

func TestComputeCompetitionRanking(t *testing.T) {
	engine := ranking.NewEngine(20000)
	responses := []domain.Response{
		{Identity: "a", QuestionID: 1, IsCorrect: true, ElapsedMs: 4000},
		{Identity: "b", QuestionID: 1, IsCorrect: true, ElapsedMs: 4000},
		{Identity: "c", QuestionID: 1, IsCorrect: true, ElapsedMs: 8000},
	}
	players := []domain.Player{
		{Identity: "a"}, {Identity: "b"}, {Identity: "c"},
	}

	entries := engine.Compute(responses, players, 10)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Position != 1 || entries[1].Position != 1 {
		t.Fatalf("expected tied leaders to share position 1, got %+v", entries)
	}
	if entries[2].Position != 3 {
		t.Fatalf("expected position sequence to skip to 3 after a tie, got %d", entries[2].Position)
	}
	if entries[0].Score != entries[1].Score {
		t.Fatalf("identical elapsed times must score identically")
	}
}

func TestComputeDeduplicatesByLatestWrite(t *testing.T) {
	engine := ranking.NewEngine(20000)
	older := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	newer := older.Add(time.Minute)
	responses := []domain.Response{
		{Identity: "a", QuestionID: 1, IsCorrect: true, ElapsedMs: 3000, UpdatedAt: older},
		{Identity: "a", QuestionID: 1, IsCorrect: false, ElapsedMs: 9000, UpdatedAt: newer},
	}
	players := []domain.Player{{Identity: "a"}}

	entries := engine.Compute(responses, players, 10)
	if len(entries) != 0 {
		t.Fatalf("expected latest (incorrect) write to win, got %+v", entries)
	}
}

func TestComputeTruncatesAfterRanking(t *testing.T) {
	engine := ranking.NewEngine(20000)
	responses := []domain.Response{
		{Identity: "a", QuestionID: 1, IsCorrect: true, ElapsedMs: 1000},
		{Identity: "b", QuestionID: 1, IsCorrect: true, ElapsedMs: 2000},
		{Identity: "c", QuestionID: 1, IsCorrect: true, ElapsedMs: 3000},
	}
	players := []domain.Player{{Identity: "a"}, {Identity: "b"}, {Identity: "c"}}

	entries := engine.Compute(responses, players, 2)
	if len(entries) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(entries))
	}
	if entries[0].Identity != "a" || entries[1].Identity != "b" {
		t.Fatalf("expected fastest two to survive truncation, got %+v", entries)
	}
}
