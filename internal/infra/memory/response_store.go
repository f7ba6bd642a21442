package memory

import (
	"context"
	"sync"
	"time"

	"trivia-live-service/internal/domain"
)

// ResponseStore is an in-memory implementation of app.ResponseStore with the
// same upsert semantics as the Postgres one. Used for tests and for running
// the server without a database.
type ResponseStore struct {
	mu        sync.RWMutex
	clock     func() time.Time
	players   map[string]*domain.Player
	responses map[responseKey]*domain.Response
}

type responseKey struct {
	identity   string
	questionID int
}

func NewResponseStore() *ResponseStore {
	return &ResponseStore{
		clock:     time.Now,
		players:   make(map[string]*domain.Player),
		responses: make(map[responseKey]*domain.Response),
	}
}

// NewResponseStoreWithClock is test-only for deterministic timestamps.
func NewResponseStoreWithClock(now func() time.Time) *ResponseStore {
	s := NewResponseStore()
	s.clock = now
	return s
}

// UpsertPlayer inserts the identity or, on conflict, updates the display name only.
func (s *ResponseStore) UpsertPlayer(_ context.Context, identity, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	if player, ok := s.players[identity]; ok {
		player.DisplayName = displayName
		player.UpdatedAt = now
		return nil
	}
	s.players[identity] = &domain.Player{
		Identity:    identity,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return nil
}

// UpsertResponse records a response, overwriting any prior one for the same
// (identity, question) pair. Returns true when the pair was seen for the first time.
func (s *ResponseStore) UpsertResponse(_ context.Context, response domain.Response) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	key := responseKey{identity: response.Identity, questionID: response.QuestionID}
	if existing, ok := s.responses[key]; ok {
		existing.ChosenOption = response.ChosenOption
		existing.IsCorrect = response.IsCorrect
		existing.ElapsedMs = response.ElapsedMs
		existing.UpdatedAt = now
		return false, nil
	}
	stored := response
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.responses[key] = &stored
	return true, nil
}

func (s *ResponseStore) ListResponses(_ context.Context) ([]domain.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Response, 0, len(s.responses))
	for _, response := range s.responses {
		out = append(out, *response)
	}
	return out, nil
}

func (s *ResponseStore) ListPlayers(_ context.Context) ([]domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Player, 0, len(s.players))
	for _, player := range s.players {
		out = append(out, *player)
	}
	return out, nil
}

// ClearResponses drops every stored response. Players are kept.
func (s *ResponseStore) ClearResponses(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = make(map[responseKey]*domain.Response)
	return nil
}

// SoftDeletePlayer marks an identity as deleted so ranking excludes it.
func (s *ResponseStore) SoftDeletePlayer(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if player, ok := s.players[identity]; ok {
		player.SoftDeleted = true
		player.UpdatedAt = s.clock()
	}
	return nil
}
