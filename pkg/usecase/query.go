package usecase

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/domain/types"
	"github.com/stratospay/delphi/pkg/utils/async"
	"github.com/stratospay/delphi/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// HandleQuery is the retrieval-augmented chat path: knowledge retrieval and
// conversation memory are gathered concurrently, the top results are prepended
// to the query text, and the reply goes through the provider gateway. Session
// persistence happens asynchronously and never delays the response.
func (uc *UseCases) HandleQuery(ctx context.Context, input *model.QueryInput) (*model.QueryOutput, error) {
	logger := logging.From(ctx)

	if strings.TrimSpace(input.Query) == "" {
		return nil, goerr.Wrap(ErrEmptyQuery, "query must not be blank")
	}
	if err := input.Scope.Validate(); err != nil {
		return nil, goerr.Wrap(ErrInvalidScope, err.Error())
	}

	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = types.NewSessionID()
	}

	var (
		results []model.SearchResult
		history []model.Message
	)

	// Retrieval and memory are independent; a failure in either degrades to
	// the other rather than failing the query.
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		found, err := uc.retrieval.Search(egCtx, input.Query, input.Scope, uc.contextLimit, "")
		if err != nil {
			logger.Warn("knowledge retrieval failed, answering without context", "error", err.Error())
			return nil
		}
		results = found
		return nil
	})
	eg.Go(func() error {
		if len(input.History) > 0 {
			// Client-managed history takes precedence over stored memory
			history = input.History
			return nil
		}
		stored, err := uc.recall.GetContext(egCtx, input.Scope, sessionID, uc.memoryBudget)
		if err != nil {
			logger.Warn("conversation memory unavailable", "error", err.Error())
			return nil
		}
		history = stored
		return nil
	})
	_ = eg.Wait()

	// Retrieved knowledge rides on the query text itself, not as an extra
	// model turn. The raw query is what gets persisted.
	prompt := input.Query
	if block := model.ContextBlock(results); block != "" {
		prompt = block + "\n" + input.Query
	}

	reply := uc.gateway.Complete(ctx, prompt, history, input.Scope, input.ModelHint)

	uc.persistExchange(ctx, input.Scope, sessionID, input.Query, reply.Content, reply.ModelUsed, reply.TokensUsed, reply.LatencyMs)

	return &model.QueryOutput{
		Content:       reply.Content,
		SessionID:     sessionID,
		ModelUsed:     reply.ModelUsed,
		TokensUsed:    reply.TokensUsed,
		LatencyMs:     reply.LatencyMs,
		KnowledgeUsed: len(results),
	}, nil
}

// persistExchange appends the user/assistant turn to the session in the
// background. Persistence failure is logged, never surfaced to the caller.
func (uc *UseCases) persistExchange(ctx context.Context, scope model.Scope, sessionID types.SessionID, query, answer, modelUsed string, tokens int, latencyMs int64) {
	messages := []model.Message{
		model.NewUserMessage(query),
		model.NewAssistantMessage(answer),
	}

	async.Dispatch(ctx, func(ctx context.Context) error {
		if err := uc.repo.Session().Append(ctx, scope, sessionID, messages, modelUsed, tokens, latencyMs); err != nil {
			return goerr.Wrap(err, "failed to persist chat exchange",
				goerr.V("sessionID", sessionID),
				goerr.V("orgID", scope.OrgID),
			)
		}
		return nil
	})
}
