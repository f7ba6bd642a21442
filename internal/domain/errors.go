package domain

import "errors"

var (
	// ErrQuestionNotFound indicates an administrator referenced an unknown question.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNoActiveRound is returned when a vote arrives outside an answering window.
	ErrNoActiveRound = errors.New("no active round")
	// ErrQuestionMismatch is returned when a vote targets a question that is not the active one.
	ErrQuestionMismatch = errors.New("submitted question does not match active round")
	// ErrStorageUnavailable indicates the shared state store or durable storage is unreachable.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrRankingFailed indicates the leaderboard could not be computed.
	ErrRankingFailed = errors.New("ranking computation failed")
)
