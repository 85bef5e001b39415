package recall

import (
	"context"
	"sort"
	"strings"

	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/domain/types"
)

// Importance scoring parameters
const (
	recencyDecay       = 0.95
	questionMultiplier = 1.5
	lengthBonusPer     = 0.001
	lengthBonusCap     = 0.5
)

// ImportanceContext is the importance-weighted selection mode: messages are
// scored by recency decay, question marks, domain keywords and length, the
// highest-scoring subset fitting the budget is selected, and chronological
// order is restored before returning.
func (s *Service) ImportanceContext(ctx context.Context, scope model.Scope, sessionID types.SessionID, maxTokens int) ([]model.Message, error) {
	messages, err := s.load(ctx, scope, sessionID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 || maxTokens <= 0 {
		return nil, nil
	}

	type scored struct {
		index int
		score float64
	}

	scoredMessages := make([]scored, len(messages))
	for i := range messages {
		scoredMessages[i] = scored{
			index: i,
			score: s.importance(&messages[i], len(messages)-1-i),
		}
	}

	// Highest score first; index tie-break keeps selection deterministic
	sort.Slice(scoredMessages, func(i, j int) bool {
		if scoredMessages[i].score != scoredMessages[j].score {
			return scoredMessages[i].score > scoredMessages[j].score
		}
		return scoredMessages[i].index > scoredMessages[j].index
	})

	budget := maxTokens
	var selected []int
	for _, sm := range scoredMessages {
		cost := messages[sm.index].EstimatedTokens()
		if cost > budget {
			continue
		}
		budget -= cost
		selected = append(selected, sm.index)
	}
	if len(selected) == 0 {
		return nil, nil
	}

	sort.Ints(selected)
	result := make([]model.Message, 0, len(selected))
	for _, idx := range selected {
		result = append(result, messages[idx])
	}
	return result, nil
}

// importance scores one message; distance is the number of messages between
// it and the end of the conversation.
func (s *Service) importance(m *model.Message, distance int) float64 {
	score := 1.0
	for i := 0; i < distance; i++ {
		score *= recencyDecay
	}

	if strings.Contains(m.Content, "?") {
		score *= questionMultiplier
	}

	lower := strings.ToLower(m.Content)
	for keyword, multiplier := range s.keywords {
		if strings.Contains(lower, keyword) {
			score *= multiplier
		}
	}

	bonus := float64(len(m.Content)) * lengthBonusPer
	if bonus > lengthBonusCap {
		bonus = lengthBonusCap
	}
	return score * (1 + bonus)
}
