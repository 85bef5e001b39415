package interfaces

import (
	"context"

	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/domain/types"
)

// SessionRepository defines the interface for chat session persistence
type SessionRepository interface {
	// Get retrieves a session with its ordered messages.
	// Returns ErrNotFound-wrapped error when the session does not exist.
	Get(ctx context.Context, orgID types.OrgID, id types.SessionID) (*model.ChatSession, error)

	// Append adds messages to a session, creating the session when absent.
	// ModelUsed, tokens and latency describe the exchange being appended.
	Append(ctx context.Context, scope model.Scope, id types.SessionID, messages []model.Message, modelUsed string, tokens int, latencyMs int64) error
}
