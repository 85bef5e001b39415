package model

import (
	"time"

	"github.com/stratospay/delphi/pkg/domain/types"
)

// ChatSession is the append-only record of one conversation.
// Messages are ordered chronologically and never mutated in place.
type ChatSession struct {
	ID          types.SessionID
	OrgID       types.OrgID
	UserID      types.UserID
	Messages    []Message
	ModelUsed   string
	TotalTokens int
	// LastLatencyMs is the latency of the most recent exchange
	LastLatencyMs int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Clone returns a deep copy of the session
func (s *ChatSession) Clone() *ChatSession {
	copied := &ChatSession{
		ID:            s.ID,
		OrgID:         s.OrgID,
		UserID:        s.UserID,
		ModelUsed:     s.ModelUsed,
		TotalTokens:   s.TotalTokens,
		LastLatencyMs: s.LastLatencyMs,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
	if s.Messages != nil {
		copied.Messages = make([]Message, len(s.Messages))
		copy(copied.Messages, s.Messages)
	}
	return copied
}
