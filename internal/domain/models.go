package domain

import "time"

// RoundStatus tells clients what to render and the server whether to accept votes.
type RoundStatus string

const (
	StatusIdle            RoundStatus = "idle"
	StatusAwaitingAnswers RoundStatus = "awaiting-answers"
	StatusAnswerRevealed  RoundStatus = "answer-revealed"
)

// RoundState is the authoritative current-round record. It lives under a single
// key in the shared state store; no server instance may trust an in-memory copy
// once more than one instance exists.
type RoundState struct {
	QuestionID  int         `json:"questionId"`
	StartedAt   int64       `json:"startedAt"` // ms since epoch
	Status      RoundStatus `json:"status"`
	TimeLimitMs int64       `json:"timeLimitMs,omitempty"` // 0 means unlimited
}

// Active reports whether the round is currently accepting answers.
func (r RoundState) Active() bool {
	return r.Status == StatusAwaitingAnswers
}

// Option is one selectable answer, keyed "A".."D".
type Option struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Question is a catalog entry. Correct holds the winning option key and must
// never leave the server unstripped.
type Question struct {
	ID      int      `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
	Correct string   `json:"correct"`
}

// StrippedQuestion is the client-safe view of a question.
type StrippedQuestion struct {
	ID      int      `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
}

// Stripped returns the question without its correct option key.
func (q Question) Stripped() StrippedQuestion {
	return StrippedQuestion{ID: q.ID, Prompt: q.Prompt, Options: q.Options}
}

// Player is a self-declared identity. The identity is immutable once first
// seen; the display name follows the latest submission.
type Player struct {
	Identity    string
	DisplayName string
	SoftDeleted bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Response is the persisted answer of one identity to one question. Exactly
// one record exists per (identity, question); resubmissions overwrite it.
type Response struct {
	Identity     string
	QuestionID   int
	ChosenOption string
	IsCorrect    bool
	ElapsedMs    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RankingEntry is one row of the computed leaderboard. Positions follow
// competition ranking: ties share a position and the sequence skips after them.
type RankingEntry struct {
	Position    int    `json:"position"`
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
}

// StatusUpdate is the aggregate counter broadcast after each recorded vote.
type StatusUpdate struct {
	ConnectedClients int   `json:"connectedClients"`
	TotalVotes       int64 `json:"totalVotes"`
}

// GameStatusEvent is fanned out to every client on a round transition, and
// replayed to late joiners while a round is accepting answers.
type GameStatusEvent struct {
	Status        RoundStatus       `json:"status"`
	Question      *StrippedQuestion `json:"question,omitempty"`
	TimeLimitMs   int64             `json:"timeLimitMs,omitempty"`
	CorrectOption string            `json:"correctOption,omitempty"`
}
