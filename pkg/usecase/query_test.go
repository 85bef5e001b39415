package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/domain/types"
	"github.com/stratospay/delphi/pkg/repository/memory"
	"github.com/stratospay/delphi/pkg/service/embedding"
	"github.com/stratospay/delphi/pkg/service/gateway"
	"github.com/stratospay/delphi/pkg/service/recall"
	"github.com/stratospay/delphi/pkg/service/retrieval"
	"github.com/stratospay/delphi/pkg/usecase"
)

var testScope = model.Scope{
	OrgID:  types.OrgID("acme-partners"),
	UserID: types.UserID("user-1"),
}

// mockSession embeds gollem.Session so only GenerateContent needs overriding
type mockSession struct {
	gollem.Session
	reply string
	err   error
	seen  *[]string
}

func (m *mockSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	if m.seen != nil {
		for _, in := range input {
			if text, ok := in.(gollem.Text); ok {
				*m.seen = append(*m.seen, string(text))
			}
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &gollem.Response{Texts: []string{m.reply}}, nil
}

type mockClient struct {
	reply string
	err   error
	seen  *[]string
}

func (m *mockClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return &mockSession{reply: m.reply, err: m.err, seen: m.seen}, nil
}

func (m *mockClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, errors.New("not supported")
}

type env struct {
	repo *memory.Memory
	uc   *usecase.UseCases
}

func newEnv(t *testing.T, providers []gateway.Provider, entries ...*model.KnowledgeEntry) *env {
	t.Helper()

	repo := memory.New()
	for _, e := range entries {
		gt.R1(repo.Knowledge().Upsert(context.Background(), e)).NoError(t)
	}

	search := gt.R1(retrieval.New(repo, embedding.New(nil))).NoError(t)
	mem := gt.R1(recall.New(repo)).NoError(t)
	gw := gateway.New(providers)

	return &env{
		repo: repo,
		uc:   usecase.New(repo, gw, search, mem),
	}
}

func singleProvider(reply string) []gateway.Provider {
	return []gateway.Provider{
		{Name: "gemini", Model: "gemini-2.0-flash", Client: &mockClient{reply: reply}},
	}
}

// waitForSession polls until the async exchange persistence lands
func waitForSession(t *testing.T, e *env, sessionID types.SessionID) *model.ChatSession {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		session, err := e.repo.Session().Get(context.Background(), testScope.OrgID, sessionID)
		if err == nil && len(session.Messages) >= 2 {
			return session
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("session was not persisted in time")
	return nil
}

func TestHandleQuery(t *testing.T) {
	t.Run("answers without knowledge entries", func(t *testing.T) {
		e := newEnv(t, singleProvider("Happy to help."))

		out := gt.R1(e.uc.HandleQuery(context.Background(), &model.QueryInput{
			Query: "hello there",
			Scope: testScope,
		})).NoError(t)

		gt.Value(t, out.Content).Equal("Happy to help.")
		gt.Value(t, out.KnowledgeUsed).Equal(0)
		gt.Value(t, out.ModelUsed).Equal("gemini-2.0-flash")
		gt.Value(t, string(out.SessionID) != "").Equal(true)
	})

	t.Run("injects retrieved knowledge into the context", func(t *testing.T) {
		e := newEnv(t, singleProvider("Residuals are paid monthly."),
			&model.KnowledgeEntry{
				OrgID:    testScope.OrgID,
				Category: types.Category("residuals"),
				Question: "When are residual payouts made?",
				Answer:   "Residual payouts are made on the 15th of each month.",
				IsActive: true,
			},
		)

		out := gt.R1(e.uc.HandleQuery(context.Background(), &model.QueryInput{
			Query: "when do residual payouts arrive",
			Scope: testScope,
		})).NoError(t)

		gt.Number(t, out.KnowledgeUsed).Greater(0)
	})

	t.Run("prepends retrieved knowledge to the query text", func(t *testing.T) {
		var seen []string
		providers := []gateway.Provider{
			{Name: "gemini", Model: "gemini-2.0-flash", Client: &mockClient{reply: "Residuals are paid monthly.", seen: &seen}},
		}
		e := newEnv(t, providers,
			&model.KnowledgeEntry{
				OrgID:    testScope.OrgID,
				Category: types.Category("residuals"),
				Question: "When are residual payouts made?",
				Answer:   "Residual payouts are made on the 15th of each month.",
				IsActive: true,
			},
		)

		out := gt.R1(e.uc.HandleQuery(context.Background(), &model.QueryInput{
			Query: "when do residual payouts arrive",
			Scope: testScope,
		})).NoError(t)

		gt.Number(t, out.KnowledgeUsed).Greater(0)
		gt.Array(t, seen).Length(1)
		gt.Value(t, strings.HasPrefix(seen[0], "Relevant information from the knowledge base:")).Equal(true)
		gt.Value(t, strings.Contains(seen[0], "Residual payouts are made on the 15th of each month.")).Equal(true)
		gt.Value(t, strings.HasSuffix(seen[0], "when do residual payouts arrive")).Equal(true)

		// The persisted user message stays the raw query
		session := waitForSession(t, e, out.SessionID)
		gt.Value(t, session.Messages[0].Content).Equal("when do residual payouts arrive")
	})

	t.Run("persists the exchange asynchronously", func(t *testing.T) {
		e := newEnv(t, singleProvider("Noted."))

		out := gt.R1(e.uc.HandleQuery(context.Background(), &model.QueryInput{
			Query: "remember this",
			Scope: testScope,
		})).NoError(t)

		session := waitForSession(t, e, out.SessionID)
		gt.Array(t, session.Messages).Length(2)
		gt.Value(t, session.Messages[0].Role).Equal(types.RoleUser)
		gt.Value(t, session.Messages[0].Content).Equal("remember this")
		gt.Value(t, session.Messages[1].Role).Equal(types.RoleAssistant)
		gt.Value(t, session.Messages[1].Content).Equal("Noted.")
	})

	t.Run("reuses the provided session ID", func(t *testing.T) {
		e := newEnv(t, singleProvider("First."))
		sessionID := types.NewSessionID()

		out := gt.R1(e.uc.HandleQuery(context.Background(), &model.QueryInput{
			Query:     "turn one",
			SessionID: sessionID,
			Scope:     testScope,
		})).NoError(t)
		gt.Value(t, out.SessionID).Equal(sessionID)
	})

	t.Run("returns degraded reply when all providers fail", func(t *testing.T) {
		providers := []gateway.Provider{
			{Name: "gemini", Model: "gemini-2.0-flash", Client: &mockClient{err: errors.New("quota exceeded")}},
			{Name: "claude", Model: "claude-sonnet", Client: &mockClient{err: errors.New("timeout")}},
		}
		e := newEnv(t, providers)

		out := gt.R1(e.uc.HandleQuery(context.Background(), &model.QueryInput{
			Query: "anything",
			Scope: testScope,
		})).NoError(t)

		gt.Value(t, out.Content).Equal(model.DegradedMessage)
		gt.Value(t, out.ModelUsed).Equal(model.ModelError)
	})

	t.Run("rejects empty query", func(t *testing.T) {
		e := newEnv(t, singleProvider("x"))
		_, err := e.uc.HandleQuery(context.Background(), &model.QueryInput{
			Query: "   ",
			Scope: testScope,
		})
		gt.Error(t, err)
		gt.Value(t, errors.Is(err, usecase.ErrEmptyQuery)).Equal(true)
	})

	t.Run("rejects invalid scope", func(t *testing.T) {
		e := newEnv(t, singleProvider("x"))
		_, err := e.uc.HandleQuery(context.Background(), &model.QueryInput{
			Query: "hello",
			Scope: model.Scope{OrgID: types.OrgID("Bad Org!")},
		})
		gt.Error(t, err)
		gt.Value(t, errors.Is(err, usecase.ErrInvalidScope)).Equal(true)
	})
}
