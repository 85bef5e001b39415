package gateway

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/domain/types"
	"github.com/stratospay/delphi/pkg/utils/logging"
)

//go:embed prompt/system.md
var systemPromptTmpl string

var systemPrompt = template.Must(template.New("system").Parse(systemPromptTmpl))

// defaultPersona is used when no persona is configured
const defaultPersona = "You are Delphi, the AI assistant of a merchant-services business platform."

// defaultTimeout bounds a single provider attempt
const defaultTimeout = 30 * time.Second

// Provider is one configured LLM backend in fallback order
type Provider struct {
	Name    string
	Model   string
	Client  gollem.LLMClient
	Timeout time.Duration
}

// Service is the provider gateway: a uniform completion interface over an
// ordered list of LLM providers. Attempts are sequential and individually
// time-boxed; a provider is never retried, the next one is tried instead, so
// worst-case latency is bounded by the sum of per-provider timeouts.
type Service struct {
	providers []Provider
	tenants   *tenantCache
	persona   string
}

// Option is a functional option for Service configuration
type Option func(*Service)

// WithPersona overrides the default assistant persona
func WithPersona(persona string) Option {
	return func(s *Service) {
		if persona != "" {
			s.persona = persona
		}
	}
}

// WithTenantOrders sets per-tenant provider ordering overrides by name
func WithTenantOrders(orders map[types.OrgID][]string) Option {
	return func(s *Service) {
		for orgID, names := range orders {
			s.tenants.put(orgID, names)
		}
	}
}

// New creates a provider gateway. An empty provider list is allowed; every
// call then returns the degraded sentinel.
func New(providers []Provider, opts ...Option) *Service {
	normalized := make([]Provider, len(providers))
	copy(normalized, providers)
	for i := range normalized {
		if normalized[i].Timeout <= 0 {
			normalized[i].Timeout = defaultTimeout
		}
	}

	s := &Service{
		providers: normalized,
		tenants:   newTenantCache(defaultTenantCacheCapacity),
		persona:   defaultPersona,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Primary returns the LLM client of the first configured provider, or nil
// when no provider is configured.
func (s *Service) Primary() gollem.LLMClient {
	if len(s.providers) == 0 {
		return nil
	}
	return s.providers[0].Client
}

// PrimaryModel returns the model name of the first configured provider
func (s *Service) PrimaryModel() string {
	if len(s.providers) == 0 {
		return ""
	}
	return s.providers[0].Model
}

// Persona returns the configured assistant persona
func (s *Service) Persona() string {
	return s.persona
}

// Complete sends the query through the provider chain and always returns a
// well-formed reply. All provider-level failures (timeout, auth, quota,
// malformed response) trigger fallback to the next provider; when every
// provider fails, the degraded sentinel reply is returned instead of an error.
func (s *Service) Complete(ctx context.Context, query string, history []model.Message, scope model.Scope, modelHint string) *model.Reply {
	logger := logging.From(ctx)
	start := time.Now()

	prompt := s.buildSystemPrompt(history)
	order := s.order(scope.OrgID, modelHint)

	for _, p := range order {
		attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
		content, err := attempt(attemptCtx, p, prompt, query)
		cancel()

		if err != nil {
			logger.Warn("provider attempt failed, falling back",
				"provider", p.Name,
				"model", p.Model,
				"error", err.Error(),
			)
			if ctx.Err() != nil {
				// The caller went away; stop burning provider quota
				break
			}
			continue
		}

		return &model.Reply{
			Content:    content,
			ModelUsed:  p.Model,
			TokensUsed: model.EstimateTokens(prompt) + model.EstimateTokens(query) + model.EstimateTokens(content),
			LatencyMs:  time.Since(start).Milliseconds(),
		}
	}

	logger.Warn("all providers exhausted, returning degraded reply", "providers", len(order))
	return model.NewDegradedReply(time.Since(start).Milliseconds())
}

// attempt runs a single time-boxed provider call. No retries happen here;
// retrying means moving to the next provider in the chain.
func attempt(ctx context.Context, p Provider, systemPrompt, query string) (string, error) {
	session, err := p.Client.NewSession(ctx,
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create provider session", goerr.V("provider", p.Name))
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(query))
	if err != nil {
		return "", goerr.Wrap(err, "provider call failed", goerr.V("provider", p.Name))
	}
	if resp == nil || len(resp.Texts) == 0 {
		return "", goerr.New("provider returned empty response", goerr.V("provider", p.Name))
	}

	return strings.Join(resp.Texts, "\n"), nil
}

// order resolves the provider chain for a tenant, optionally promoting the
// provider matching modelHint to the front.
func (s *Service) order(orgID types.OrgID, modelHint string) []Provider {
	order := s.providers
	if names, ok := s.tenants.get(orgID); ok {
		order = s.byNames(names)
	}

	if modelHint == "" {
		return order
	}

	promoted := make([]Provider, 0, len(order))
	var rest []Provider
	for _, p := range order {
		if p.Name == modelHint || p.Model == modelHint {
			promoted = append(promoted, p)
		} else {
			rest = append(rest, p)
		}
	}
	return append(promoted, rest...)
}

func (s *Service) byNames(names []string) []Provider {
	byName := make(map[string]Provider, len(s.providers))
	for _, p := range s.providers {
		byName[p.Name] = p
	}

	order := make([]Provider, 0, len(names))
	for _, name := range names {
		if p, ok := byName[name]; ok {
			order = append(order, p)
		}
	}
	if len(order) == 0 {
		return s.providers
	}
	return order
}

type promptMessage struct {
	Role    string
	Content string
}

type promptData struct {
	Persona  string
	Messages []promptMessage
}

// buildSystemPrompt renders the persona plus conversation history into the
// system prompt. The same prompt is used regardless of provider.
func (s *Service) buildSystemPrompt(history []model.Message) string {
	data := promptData{Persona: s.persona}
	for i := range history {
		data.Messages = append(data.Messages, promptMessage{
			Role:    history[i].Role.String(),
			Content: history[i].Content,
		})
	}

	var buf bytes.Buffer
	if err := systemPrompt.Execute(&buf, data); err != nil {
		return s.persona
	}
	return buf.String()
}
