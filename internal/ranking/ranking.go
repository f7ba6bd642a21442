package ranking

import (
	"sort"

	"trivia-live-service/internal/domain"
)

const (
	// BaseAward is the fixed score for a correct response.
	BaseAward = 2000
	// BonusDivisor scales the speed bonus.
	BonusDivisor = 40
	// DefaultMaxRoundDurationMs anchors the speed bonus when no limit is configured.
	DefaultMaxRoundDurationMs = 20000
)

// Engine computes leaderboards from persisted responses. Nothing is cached;
// every call recomputes from the rows it is given.
type Engine struct {
	maxRoundDurationMs int64
}

func NewEngine(maxRoundDurationMs int64) *Engine {
	if maxRoundDurationMs <= 0 {
		maxRoundDurationMs = DefaultMaxRoundDurationMs
	}
	return &Engine{maxRoundDurationMs: maxRoundDurationMs}
}

// Score returns the contribution of a single response. Incorrect responses
// contribute nothing; correct ones earn the base award plus a speed bonus, so
// a faster correct answer always scores strictly higher than a slower one.
func (e *Engine) Score(response domain.Response) int {
	if !response.IsCorrect {
		return 0
	}
	bonus := (e.maxRoundDurationMs - response.ElapsedMs) / BonusDivisor
	if bonus < 0 {
		bonus = 0
	}
	return BaseAward + int(bonus)
}

// Compute builds the ordered leaderboard. Identities without a single correct
// response and soft-deleted identities are left out entirely. Ties share a
// position and the sequence skips after them (1, 1, 3). Truncation to limit
// happens after ranking; limit <= 0 means no truncation.
func (e *Engine) Compute(responses []domain.Response, players []domain.Player, limit int) []domain.RankingEntry {
	deleted := make(map[string]bool, len(players))
	names := make(map[string]string, len(players))
	for _, player := range players {
		deleted[player.Identity] = player.SoftDeleted
		names[player.Identity] = player.DisplayName
	}

	// The storage layer guarantees one row per (identity, question), but
	// re-deduplicate by latest write in case of anomalies.
	latest := make(map[string]map[int]domain.Response)
	for _, response := range responses {
		perQuestion, ok := latest[response.Identity]
		if !ok {
			perQuestion = make(map[int]domain.Response)
			latest[response.Identity] = perQuestion
		}
		if prior, ok := perQuestion[response.QuestionID]; !ok || response.UpdatedAt.After(prior.UpdatedAt) {
			perQuestion[response.QuestionID] = response
		}
	}

	totals := make(map[string]int)
	for identity, perQuestion := range latest {
		if deleted[identity] {
			continue
		}
		anyCorrect := false
		total := 0
		for _, response := range perQuestion {
			if response.IsCorrect {
				anyCorrect = true
				total += e.Score(response)
			}
		}
		if anyCorrect {
			totals[identity] = total
		}
	}

	entries := make([]domain.RankingEntry, 0, len(totals))
	for identity, score := range totals {
		entries = append(entries, domain.RankingEntry{
			Identity:    identity,
			DisplayName: names[identity],
			Score:       score,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Identity < entries[j].Identity
	})

	// standard competition ranking
	for i := range entries {
		if i > 0 && entries[i].Score == entries[i-1].Score {
			entries[i].Position = entries[i-1].Position
		} else {
			entries[i].Position = i + 1
		}
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
