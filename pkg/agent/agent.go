package agent

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/stratospay/delphi/pkg/agent/tool"
	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/utils/logging"
)

// state is the current phase of the reasoning/acting loop
type state int

const (
	stateStart state = iota
	stateModelCall
	stateToolRequested
	stateToolExecuted
	stateDone
)

// maxModelCalls bounds the loop: Start -> ModelCall -> (ToolRequested ->
// ToolExecuted -> ModelCall)* -> Done terminates within this many model calls
// even when every call requests a tool.
const maxModelCalls = 5

// Confidence levels reported as a diagnostic field
const (
	confidenceWithTools    = 0.9
	confidenceWithoutTools = 0.7
)

// Agent runs a bounded tool-use loop against one LLM client: each model call
// exposes the full tool registry, requested tools are executed and their
// results fed back as tool-role responses, until the model produces a pure
// text answer or the iteration bound is hit.
type Agent struct {
	llm          gollem.LLMClient
	registry     *tool.Registry
	modelLabel   string
	systemPrompt string
}

// Option is a functional option for Agent configuration
type Option func(*Agent)

// WithModelLabel sets the model name reported in results
func WithModelLabel(label string) Option {
	return func(a *Agent) {
		a.modelLabel = label
	}
}

// WithSystemPrompt sets the system prompt for agent sessions
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		a.systemPrompt = prompt
	}
}

// New creates an agent bound to an LLM client and a tool registry
func New(llm gollem.LLMClient, registry *tool.Registry, opts ...Option) (*Agent, error) {
	if llm == nil {
		return nil, goerr.New("LLM client is required")
	}
	if registry == nil {
		return nil, goerr.New("tool registry is required")
	}

	a := &Agent{
		llm:        llm,
		registry:   registry,
		modelLabel: "agent",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Execute runs the loop for one query. It never fails on provider or tool
// errors: tool failures become observations the model can react to, and
// provider failure or an exhausted iteration bound degrade to the best
// available text. Only context cancellation propagates as an error.
func (a *Agent) Execute(ctx context.Context, query string) (*model.AgentResult, error) {
	logger := logging.From(ctx)
	start := time.Now()

	sessionOpts := []gollem.SessionOption{
		gollem.WithSessionTools(a.registry.Tools()...),
	}
	if a.systemPrompt != "" {
		sessionOpts = append(sessionOpts, gollem.WithSessionSystemPrompt(a.systemPrompt))
	}

	session, err := a.llm.NewSession(ctx, sessionOpts...)
	if err != nil {
		logger.Error("failed to create agent session", "error", err.Error())
		return degradedResult(start), nil
	}

	var (
		trace     []model.TraceStep
		lastText  string
		toolsUsed int
		tokens    = model.EstimateTokens(query)
	)

	inputs := []gollem.Input{gollem.Text(query)}
	current := stateStart

	for calls := 0; calls < maxModelCalls; calls++ {
		current = stateModelCall

		resp, err := session.GenerateContent(ctx, inputs...)
		if err != nil {
			if ctx.Err() != nil {
				return nil, goerr.Wrap(ctx.Err(), "agent cancelled")
			}
			logger.Error("agent model call failed", "step", calls+1, "error", err.Error())
			break
		}

		var thought string
		if len(resp.Texts) > 0 {
			thought = strings.Join(resp.Texts, "\n")
			lastText = thought
			tokens += model.EstimateTokens(thought)
		}

		if len(resp.FunctionCalls) == 0 {
			current = stateDone
			break
		}

		current = stateToolRequested
		inputs = inputs[:0]
		for _, call := range resp.FunctionCalls {
			step := model.TraceStep{
				Step:    len(trace) + 1,
				Thought: thought,
				Action:  call.Name,
			}

			t, ok := a.registry.Resolve(call.Name)
			if !ok {
				logger.Warn("model requested unknown tool, skipping", "tool", call.Name)
				step.Observation = "unknown tool: " + call.Name
				trace = append(trace, step)
				inputs = append(inputs, gollem.FunctionResponse{
					ID:    call.ID,
					Name:  call.Name,
					Error: goerr.New("unknown tool", goerr.V("name", call.Name)),
				})
				continue
			}

			result, err := t.Run(ctx, call.Arguments)
			current = stateToolExecuted
			toolsUsed++

			if err != nil {
				// A failing handler is an observation for the model to
				// self-correct on, never a fatal agent failure
				step.Observation = "error: " + err.Error()
				inputs = append(inputs, gollem.FunctionResponse{
					ID:    call.ID,
					Name:  call.Name,
					Error: err,
				})
			} else {
				step.Observation = compactJSON(result)
				inputs = append(inputs, gollem.FunctionResponse{
					ID:   call.ID,
					Name: call.Name,
					Data: result,
				})
			}

			tokens += model.EstimateTokens(step.Observation)
			trace = append(trace, step)
		}
	}

	if current != stateDone {
		logger.Warn("agent iteration bound reached without final answer",
			"maxModelCalls", maxModelCalls,
			"toolsUsed", toolsUsed,
		)
	}

	confidence := confidenceWithoutTools
	if toolsUsed > 0 {
		confidence = confidenceWithTools
	}
	if lastText == "" {
		return degradedResultWithTrace(start, trace), nil
	}

	return &model.AgentResult{
		Content:    lastText,
		Trace:      trace,
		Confidence: confidence,
		ToolsUsed:  toolsUsed,
		ModelUsed:  a.modelLabel,
		TokensUsed: tokens,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

func degradedResult(start time.Time) *model.AgentResult {
	return degradedResultWithTrace(start, nil)
}

func degradedResultWithTrace(start time.Time, trace []model.TraceStep) *model.AgentResult {
	return &model.AgentResult{
		Content:    model.DegradedMessage,
		Trace:      trace,
		Confidence: 0,
		ModelUsed:  model.ModelError,
		LatencyMs:  time.Since(start).Milliseconds(),
	}
}

func compactJSON(data map[string]any) string {
	raw, err := json.Marshal(data)
	if err != nil {
		return "unserializable tool result"
	}
	return string(raw)
}
