package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/domain/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type messageDoc struct {
	Role       string    `firestore:"Role"`
	Content    string    `firestore:"Content"`
	Timestamp  time.Time `firestore:"Timestamp"`
	ToolName   string    `firestore:"ToolName,omitempty"`
	ToolCallID string    `firestore:"ToolCallID,omitempty"`
}

type sessionDoc struct {
	ID            types.SessionID `firestore:"ID"`
	OrgID         types.OrgID     `firestore:"OrgID"`
	UserID        types.UserID    `firestore:"UserID"`
	Messages      []messageDoc    `firestore:"Messages"`
	ModelUsed     string          `firestore:"ModelUsed"`
	TotalTokens   int             `firestore:"TotalTokens"`
	LastLatencyMs int64           `firestore:"LastLatencyMs"`
	CreatedAt     time.Time       `firestore:"CreatedAt"`
	UpdatedAt     time.Time       `firestore:"UpdatedAt"`
}

func toMessageDocs(messages []model.Message) []messageDoc {
	docs := make([]messageDoc, len(messages))
	for i, m := range messages {
		docs[i] = messageDoc{
			Role:       string(m.Role),
			Content:    m.Content,
			Timestamp:  m.Timestamp,
			ToolName:   m.ToolName,
			ToolCallID: m.ToolCallID,
		}
	}
	return docs
}

func fromSessionDoc(d *sessionDoc) *model.ChatSession {
	s := &model.ChatSession{
		ID:            d.ID,
		OrgID:         d.OrgID,
		UserID:        d.UserID,
		ModelUsed:     d.ModelUsed,
		TotalTokens:   d.TotalTokens,
		LastLatencyMs: d.LastLatencyMs,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	for _, m := range d.Messages {
		s.Messages = append(s.Messages, model.Message{
			Role:       types.MessageRole(m.Role),
			Content:    m.Content,
			Timestamp:  m.Timestamp,
			ToolName:   m.ToolName,
			ToolCallID: m.ToolCallID,
		})
	}
	return s
}

type sessionRepository struct {
	client *firestore.Client
}

func newSessionRepository(client *firestore.Client) *sessionRepository {
	return &sessionRepository{client: client}
}

func (r *sessionRepository) collection(orgID types.OrgID) *firestore.CollectionRef {
	return r.client.Collection("orgs").Doc(string(orgID)).Collection("chat_sessions")
}

func (r *sessionRepository) Get(ctx context.Context, orgID types.OrgID, id types.SessionID) (*model.ChatSession, error) {
	doc, err := r.collection(orgID).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "session not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get session", goerr.V("id", id))
	}

	var d sessionDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal session", goerr.V("id", id))
	}
	return fromSessionDoc(&d), nil
}

// Append adds messages to a session inside a transaction so that concurrent
// appends do not lose messages. The session document is created when absent.
func (r *sessionRepository) Append(ctx context.Context, scope model.Scope, id types.SessionID, messages []model.Message, modelUsed string, tokens int, latencyMs int64) error {
	if id == "" {
		return goerr.New("session ID is required")
	}
	for i := range messages {
		if err := messages[i].Validate(); err != nil {
			return goerr.Wrap(err, "invalid message", goerr.V("index", i))
		}
	}

	docRef := r.collection(scope.OrgID).Doc(string(id))
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		now := time.Now().UTC()
		var d sessionDoc

		doc, err := tx.Get(docRef)
		switch {
		case err == nil:
			if err := doc.DataTo(&d); err != nil {
				return goerr.Wrap(err, "failed to unmarshal session")
			}
		case status.Code(err) == codes.NotFound:
			d = sessionDoc{
				ID:        id,
				OrgID:     scope.OrgID,
				UserID:    scope.UserID,
				CreatedAt: now,
			}
		default:
			return goerr.Wrap(err, "failed to read session")
		}

		d.Messages = append(d.Messages, toMessageDocs(messages)...)
		d.ModelUsed = modelUsed
		d.TotalTokens += tokens
		d.LastLatencyMs = latencyMs
		d.UpdatedAt = now

		return tx.Set(docRef, &d)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to append session messages", goerr.V("id", id))
	}
	return nil
}
