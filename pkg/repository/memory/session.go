package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/domain/types"
)

type sessionRepository struct {
	mu       sync.RWMutex
	sessions map[types.OrgID]map[types.SessionID]*model.ChatSession
}

func newSessionRepository() *sessionRepository {
	return &sessionRepository{
		sessions: make(map[types.OrgID]map[types.SessionID]*model.ChatSession),
	}
}

func (r *sessionRepository) Get(ctx context.Context, orgID types.OrgID, id types.SessionID) (*model.ChatSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[orgID][id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "session not found", goerr.V("id", id))
	}
	return session.Clone(), nil
}

func (r *sessionRepository) Append(ctx context.Context, scope model.Scope, id types.SessionID, messages []model.Message, modelUsed string, tokens int, latencyMs int64) error {
	if id == "" {
		return goerr.New("session ID is required")
	}
	for i := range messages {
		if err := messages[i].Validate(); err != nil {
			return goerr.Wrap(err, "invalid message", goerr.V("index", i))
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byOrg, ok := r.sessions[scope.OrgID]
	if !ok {
		byOrg = make(map[types.SessionID]*model.ChatSession)
		r.sessions[scope.OrgID] = byOrg
	}

	now := time.Now().UTC()
	session, ok := byOrg[id]
	if !ok {
		session = &model.ChatSession{
			ID:        id,
			OrgID:     scope.OrgID,
			UserID:    scope.UserID,
			CreatedAt: now,
		}
		byOrg[id] = session
	}

	session.Messages = append(session.Messages, messages...)
	session.ModelUsed = modelUsed
	session.TotalTokens += tokens
	session.LastLatencyMs = latencyMs
	session.UpdatedAt = now

	return nil
}
