package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stratospay/delphi/pkg/agent"
	"github.com/stratospay/delphi/pkg/agent/tool"
	"github.com/stratospay/delphi/pkg/agent/tool/core"
	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/domain/types"
)

//go:embed prompt/agent_system.md
var agentSystemPromptTmpl string

var agentSystemPrompt = template.Must(template.New("agent_system").Parse(agentSystemPromptTmpl))

// AgentOutput is the result of a tool-capable agent run
type AgentOutput struct {
	Content    string            `json:"content"`
	SessionID  types.SessionID   `json:"session_id"`
	Trace      []model.TraceStep `json:"trace,omitempty"`
	Confidence float64           `json:"confidence"`
	ToolsUsed  int               `json:"tools_used"`
	ModelUsed  string            `json:"model_used"`
	TokensUsed int               `json:"tokens_used"`
	LatencyMs  int64             `json:"latency_ms"`
}

// RunAgent is the tool-capable entry point: the query runs through the
// bounded tool-use loop with the tenant-scoped tool set, and the exchange is
// persisted like a chat turn. The agent uses the primary provider only;
// fallback across providers applies to plain chat, not tool sessions.
func (uc *UseCases) RunAgent(ctx context.Context, input *model.QueryInput) (*AgentOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, goerr.Wrap(ErrEmptyQuery, "query must not be blank")
	}
	if err := input.Scope.Validate(); err != nil {
		return nil, goerr.Wrap(ErrInvalidScope, err.Error())
	}

	llm := uc.gateway.Primary()
	if llm == nil {
		return nil, goerr.Wrap(ErrNoProvider, "agent requires a configured provider")
	}

	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = types.NewSessionID()
	}

	registry, err := tool.NewRegistry(core.New(uc.repo, uc.retrieval, input.Scope, uc.directory)...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build tool registry")
	}

	runner, err := agent.New(llm, registry,
		agent.WithModelLabel(uc.gateway.PrimaryModel()),
		agent.WithSystemPrompt(uc.buildAgentSystemPrompt()),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build agent")
	}

	result, err := runner.Execute(ctx, input.Query)
	if err != nil {
		return nil, goerr.Wrap(err, "agent execution failed")
	}

	uc.persistExchange(ctx, input.Scope, sessionID, input.Query, result.Content, result.ModelUsed, result.TokensUsed, result.LatencyMs)

	return &AgentOutput{
		Content:    result.Content,
		SessionID:  sessionID,
		Trace:      result.Trace,
		Confidence: result.Confidence,
		ToolsUsed:  result.ToolsUsed,
		ModelUsed:  result.ModelUsed,
		TokensUsed: result.TokensUsed,
		LatencyMs:  result.LatencyMs,
	}, nil
}

func (uc *UseCases) buildAgentSystemPrompt() string {
	data := struct {
		Persona string
	}{
		Persona: uc.gateway.Persona(),
	}

	var buf bytes.Buffer
	if err := agentSystemPrompt.Execute(&buf, data); err != nil {
		return data.Persona
	}
	return buf.String()
}
