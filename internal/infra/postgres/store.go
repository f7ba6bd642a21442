package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"trivia-live-service/internal/domain"
)

type playerRow struct {
	bun.BaseModel `bun:"table:players"`

	Identity    string    `bun:"identity,pk"`
	DisplayName string    `bun:"display_name,notnull"`
	SoftDeleted bool      `bun:"soft_deleted,notnull,default:false"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}

type responseRow struct {
	bun.BaseModel `bun:"table:responses"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Identity     string    `bun:"identity,notnull"`
	QuestionID   int       `bun:"question_id,notnull"`
	ChosenOption string    `bun:"chosen_option,notnull"`
	IsCorrect    bool      `bun:"is_correct,notnull"`
	ElapsedMs    int64     `bun:"elapsed_ms,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

// Store persists players and responses in Postgres via bun.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// UpsertPlayer inserts the identity or, on conflict, updates the display name
// only. The identity itself is immutable once first seen.
func (s *Store) UpsertPlayer(ctx context.Context, identity, displayName string) error {
	now := time.Now()
	row := &playerRow{
		Identity:    identity,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (identity) DO UPDATE").
		Set("display_name = EXCLUDED.display_name").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert player: %w", err)
	}
	return nil
}

// UpsertResponse records a response as a single atomic upsert keyed by
// (identity, question_id). Returns true when the row was inserted rather than
// updated; (xmax = 0) distinguishes the two on Postgres.
func (s *Store) UpsertResponse(ctx context.Context, response domain.Response) (bool, error) {
	now := time.Now()
	row := &responseRow{
		Identity:     response.Identity,
		QuestionID:   response.QuestionID,
		ChosenOption: response.ChosenOption,
		IsCorrect:    response.IsCorrect,
		ElapsedMs:    response.ElapsedMs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	var inserted bool
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (identity, question_id) DO UPDATE").
		Set("chosen_option = EXCLUDED.chosen_option").
		Set("is_correct = EXCLUDED.is_correct").
		Set("elapsed_ms = EXCLUDED.elapsed_ms").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("(xmax = 0)").
		Exec(ctx, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert response: %w", err)
	}
	return inserted, nil
}

func (s *Store) ListResponses(ctx context.Context) ([]domain.Response, error) {
	var rows []responseRow
	if err := s.db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	out := make([]domain.Response, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Response{
			Identity:     row.Identity,
			QuestionID:   row.QuestionID,
			ChosenOption: row.ChosenOption,
			IsCorrect:    row.IsCorrect,
			ElapsedMs:    row.ElapsedMs,
			CreatedAt:    row.CreatedAt,
			UpdatedAt:    row.UpdatedAt,
		})
	}
	return out, nil
}

func (s *Store) ListPlayers(ctx context.Context) ([]domain.Player, error) {
	var rows []playerRow
	if err := s.db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	out := make([]domain.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.Player{
			Identity:    row.Identity,
			DisplayName: row.DisplayName,
			SoftDeleted: row.SoftDeleted,
			CreatedAt:   row.CreatedAt,
			UpdatedAt:   row.UpdatedAt,
		})
	}
	return out, nil
}

// ClearResponses is the administrative bulk clear. Players are kept.
func (s *Store) ClearResponses(ctx context.Context) error {
	if _, err := s.db.NewTruncateTable().Model((*responseRow)(nil)).Exec(ctx); err != nil {
		return fmt.Errorf("clear responses: %w", err)
	}
	return nil
}

// SoftDeletePlayer marks an identity as deleted so ranking excludes it.
func (s *Store) SoftDeletePlayer(ctx context.Context, identity string) error {
	_, err := s.db.NewUpdate().
		Model((*playerRow)(nil)).
		Set("soft_deleted = TRUE").
		Set("updated_at = ?", time.Now()).
		Where("identity = ?", identity).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("soft delete player: %w", err)
	}
	return nil
}
