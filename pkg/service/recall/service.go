package recall

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stratospay/delphi/pkg/domain/interfaces"
	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/domain/types"
)

const (
	// defaultRecentWindow is the number of most recent messages always
	// considered first
	defaultRecentWindow = 10

	// summarizeThreshold is the history size above which the older window is
	// replaced by one synthetic summary message
	summarizeThreshold = 20
)

// Service selects and summarizes prior conversation turns so the assembled
// context fits a token budget. Both selection modes are deterministic for
// identical inputs.
type Service struct {
	repo         interfaces.Repository
	recentWindow int
	keywords     map[string]float64
}

// Option is a functional option for Service configuration
type Option func(*Service)

// WithRecentWindow overrides the recent-message window size
func WithRecentWindow(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recentWindow = n
		}
	}
}

// WithDomainKeywords replaces the default domain keyword weights used for
// topic extraction and importance scoring
func WithDomainKeywords(keywords map[string]float64) Option {
	return func(s *Service) {
		if len(keywords) > 0 {
			s.keywords = keywords
		}
	}
}

// New creates a conversation memory service
func New(repo interfaces.Repository, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, goerr.New("repository is required")
	}

	s := &Service{
		repo:         repo,
		recentWindow: defaultRecentWindow,
		keywords:     defaultDomainKeywords,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GetContext returns an ordered slice of messages whose summed estimated
// tokens never exceed maxTokens. The most recent window is always preferred;
// once the history outgrows the summarize threshold, the older window
// collapses into one synthetic summary message.
func (s *Service) GetContext(ctx context.Context, scope model.Scope, sessionID types.SessionID, maxTokens int) ([]model.Message, error) {
	messages, err := s.load(ctx, scope, sessionID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 || maxTokens <= 0 {
		return nil, nil
	}

	recentStart := len(messages) - s.recentWindow
	if recentStart < 0 {
		recentStart = 0
	}
	recent := messages[recentStart:]
	recentTokens := sumTokens(recent)

	// Recent window alone exceeds the budget: keep a contiguous,
	// chronologically ordered suffix, dropping the oldest first.
	if recentTokens > maxTokens {
		return trimToBudget(recent, maxTokens), nil
	}

	older := messages[:recentStart]
	if recentTokens >= maxTokens/2 || len(older) == 0 {
		return append([]model.Message(nil), recent...), nil
	}

	remaining := maxTokens - recentTokens

	if len(messages) > summarizeThreshold {
		summary := s.summarize(older)
		if summary.EstimatedTokens() > remaining {
			return append([]model.Message(nil), recent...), nil
		}
		result := make([]model.Message, 0, len(recent)+1)
		result = append(result, summary)
		result = append(result, recent...)
		return result, nil
	}

	// Small older window: include the newest older messages that fit,
	// preserving chronological order.
	prefix := trimToBudget(older, remaining)
	result := make([]model.Message, 0, len(prefix)+len(recent))
	result = append(result, prefix...)
	result = append(result, recent...)
	return result, nil
}

func (s *Service) load(ctx context.Context, scope model.Scope, sessionID types.SessionID) ([]model.Message, error) {
	session, err := s.repo.Session().Get(ctx, scope.OrgID, sessionID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to load session", goerr.V("sessionID", sessionID))
	}
	return session.Messages, nil
}

// trimToBudget drops the oldest messages until the remaining contiguous
// suffix fits the budget
func trimToBudget(messages []model.Message, maxTokens int) []model.Message {
	total := sumTokens(messages)
	start := 0
	for start < len(messages) && total > maxTokens {
		total -= messages[start].EstimatedTokens()
		start++
	}
	if start >= len(messages) {
		return nil
	}
	return append([]model.Message(nil), messages[start:]...)
}

func sumTokens(messages []model.Message) int {
	total := 0
	for i := range messages {
		total += messages[i].EstimatedTokens()
	}
	return total
}
