package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"trivia-live-service/internal/domain"
	"trivia-live-service/internal/ranking"
)

// RoundStore holds the authoritative round record in the shared state store.
type RoundStore interface {
	Get(ctx context.Context) (domain.RoundState, bool, error)
	Set(ctx context.Context, state domain.RoundState) error
	Clear(ctx context.Context) error
}

// CounterStore holds the per-question vote counters. Increment must be a
// single atomic operation against the store, never read-modify-write here.
type CounterStore interface {
	Increment(ctx context.Context, questionID int) (int64, error)
	Reset(ctx context.Context, questionID int) error
	Current(ctx context.Context, questionID int) (int64, error)
}

// ResponseStore abstracts durable persistence of players and responses.
type ResponseStore interface {
	UpsertPlayer(ctx context.Context, identity, displayName string) error
	UpsertResponse(ctx context.Context, response domain.Response) (inserted bool, err error)
	ListResponses(ctx context.Context) ([]domain.Response, error)
	ListPlayers(ctx context.Context) ([]domain.Player, error)
	ClearResponses(ctx context.Context) error
}

// Catalog resolves questions from the read-only question bank.
type Catalog interface {
	Question(ctx context.Context, id int) (domain.Question, error)
}

// Broadcaster fans events out to every connected client.
type Broadcaster interface {
	BroadcastGameStatus(event domain.GameStatusEvent)
	BroadcastRanking(entries []domain.RankingEntry)
	BroadcastStatusUpdate(update domain.StatusUpdate)
	ClientCount() int
}

// SubmitRequest carries one player answer. ClientTimestamp is logged only and
// never used for scoring or validation.
type SubmitRequest struct {
	Identity        string
	DisplayName     string
	QuestionID      int
	ChosenOption    string
	ClientTimestamp int64
}

// GameService owns the round state machine, vote ingestion, and the admin
// operations that drive a game. The shared state store is the canonical source
// of truth for the current round; the in-memory copy here is only a
// degraded-mode cache used when the store is unreachable, and may be stale.
type GameService struct {
	rounds   RoundStore
	counters CounterStore
	store    ResponseStore
	catalog  Catalog
	ranking  *ranking.Engine
	fanout   Broadcaster
	now      func() time.Time

	mu        sync.RWMutex
	lastKnown *domain.RoundState
}

func NewGameService(rounds RoundStore, counters CounterStore, store ResponseStore, catalog Catalog, engine *ranking.Engine, fanout Broadcaster) *GameService {
	return &GameService{
		rounds:   rounds,
		counters: counters,
		store:    store,
		catalog:  catalog,
		ranking:  engine,
		fanout:   fanout,
		now:      time.Now,
	}
}

// NewGameServiceWithClock is test-only for deterministic timestamps.
func NewGameServiceWithClock(rounds RoundStore, counters CounterStore, store ResponseStore, catalog Catalog, engine *ranking.Engine, fanout Broadcaster, now func() time.Time) *GameService {
	s := NewGameService(rounds, counters, store, catalog, engine, fanout)
	s.now = now
	return s
}

// currentRound re-reads the round record from the shared state store. Another
// instance or a restart may have changed it, so no caller trusts a local copy.
// If the store is unreachable the last-known copy is used and the degraded
// mode is logged; concurrent instances in fallback may diverge.
func (s *GameService) currentRound(ctx context.Context) (domain.RoundState, bool) {
	state, ok, err := s.rounds.Get(ctx)
	if err != nil {
		log.Printf("state store unreachable, falling back to last-known round state: %v", err)
		s.mu.RLock()
		cached := s.lastKnown
		s.mu.RUnlock()
		if cached == nil {
			return domain.RoundState{}, false
		}
		return *cached, true
	}

	s.mu.Lock()
	if ok {
		copied := state
		s.lastKnown = &copied
	} else {
		s.lastKnown = nil
	}
	s.mu.Unlock()
	return state, ok
}

// Activate starts a round for a question: writes the round record with a
// bounded expiry, zeroes the question's vote counter, and fans out the
// answer-stripped question with the time limit.
func (s *GameService) Activate(ctx context.Context, questionID int, timeLimitMs int64) error {
	question, err := s.catalog.Question(ctx, questionID)
	if err != nil {
		return err
	}

	state := domain.RoundState{
		QuestionID:  questionID,
		StartedAt:   s.now().UnixMilli(),
		Status:      domain.StatusAwaitingAnswers,
		TimeLimitMs: timeLimitMs,
	}
	if err := s.rounds.Set(ctx, state); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	s.mu.Lock()
	s.lastKnown = &state
	s.mu.Unlock()

	if err := s.counters.Reset(ctx, questionID); err != nil {
		log.Printf("reset vote counter for question %d: %v", questionID, err)
	}

	stripped := question.Stripped()
	s.fanout.BroadcastGameStatus(domain.GameStatusEvent{
		Status:      domain.StatusAwaitingAnswers,
		Question:    &stripped,
		TimeLimitMs: timeLimitMs,
	})
	return nil
}

// Reveal broadcasts the correct option for the active round. The round record
// keeps its question; only the status moves to answer-revealed.
func (s *GameService) Reveal(ctx context.Context) error {
	state, ok := s.currentRound(ctx)
	if !ok {
		return domain.ErrNoActiveRound
	}

	question, err := s.catalog.Question(ctx, state.QuestionID)
	if err != nil {
		return err
	}

	state.Status = domain.StatusAnswerRevealed
	if err := s.rounds.Set(ctx, state); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	s.mu.Lock()
	copied := state
	s.lastKnown = &copied
	s.mu.Unlock()

	s.fanout.BroadcastGameStatus(domain.GameStatusEvent{
		Status:        domain.StatusAnswerRevealed,
		CorrectOption: question.Correct,
	})
	return nil
}

// ReturnToIdle clears the round record and broadcasts an idle status.
// Calling it with no active round is a no-op, not an error.
func (s *GameService) ReturnToIdle(ctx context.Context) error {
	if err := s.rounds.Clear(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	s.mu.Lock()
	s.lastKnown = nil
	s.mu.Unlock()

	s.fanout.BroadcastGameStatus(domain.GameStatusEvent{Status: domain.StatusIdle})
	return nil
}

// ShowLeaderboard computes the ranking synchronously and fans it out. A
// compute failure is returned to the administrator only, never broadcast.
func (s *GameService) ShowLeaderboard(ctx context.Context, limit int) ([]domain.RankingEntry, error) {
	responses, err := s.store.ListResponses(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRankingFailed, err)
	}
	players, err := s.store.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRankingFailed, err)
	}

	entries := s.ranking.Compute(responses, players, limit)
	s.fanout.BroadcastRanking(entries)
	return entries, nil
}

// ClearResponses is the administrative bulk clear of all response records.
func (s *GameService) ClearResponses(ctx context.Context) error {
	if err := s.store.ClearResponses(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// Submit validates and records one player answer. Validation happens before
// any persistence attempt and short-circuits with no side effects; the vote
// counter is incremented only after confirmed persistence, and only when the
// (identity, question) pair is recorded for the first time.
func (s *GameService) Submit(ctx context.Context, req SubmitRequest) error {
	state, ok := s.currentRound(ctx)
	if !ok || !state.Active() {
		return domain.ErrNoActiveRound
	}
	if req.QuestionID != state.QuestionID {
		return domain.ErrQuestionMismatch
	}

	// Elapsed time is computed from the server-observed round start; the
	// client timestamp is recorded in the log only.
	elapsedMs := s.now().UnixMilli() - state.StartedAt
	log.Printf("submission from %s for question %d (client ts %d, elapsed %dms)",
		req.Identity, req.QuestionID, req.ClientTimestamp, elapsedMs)

	question, err := s.catalog.Question(ctx, req.QuestionID)
	if err != nil {
		return err
	}
	isCorrect := req.ChosenOption == question.Correct

	if err := s.store.UpsertPlayer(ctx, req.Identity, req.DisplayName); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	inserted, err := s.store.UpsertResponse(ctx, domain.Response{
		Identity:     req.Identity,
		QuestionID:   req.QuestionID,
		ChosenOption: req.ChosenOption,
		IsCorrect:    isCorrect,
		ElapsedMs:    elapsedMs,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	if inserted {
		if _, err := s.counters.Increment(ctx, req.QuestionID); err != nil {
			log.Printf("increment vote counter for question %d: %v", req.QuestionID, err)
		}
	}
	total, err := s.counters.Current(ctx, req.QuestionID)
	if err != nil {
		log.Printf("read vote counter for question %d: %v", req.QuestionID, err)
	}
	s.fanout.BroadcastStatusUpdate(domain.StatusUpdate{
		ConnectedClients: s.fanout.ClientCount(),
		TotalVotes:       total,
	})
	return nil
}

// LateJoinState returns the event to replay to a freshly connected client.
// It re-reads the round record first; ok is false when there is nothing to
// replay (idle, or revealed without an answering window).
func (s *GameService) LateJoinState(ctx context.Context) (domain.GameStatusEvent, bool) {
	state, ok := s.currentRound(ctx)
	if !ok || !state.Active() {
		return domain.GameStatusEvent{}, false
	}
	question, err := s.catalog.Question(ctx, state.QuestionID)
	if err != nil {
		log.Printf("late join: question %d lookup failed: %v", state.QuestionID, err)
		return domain.GameStatusEvent{}, false
	}
	stripped := question.Stripped()
	return domain.GameStatusEvent{
		Status:      domain.StatusAwaitingAnswers,
		Question:    &stripped,
		TimeLimitMs: state.TimeLimitMs,
	}, true
}
