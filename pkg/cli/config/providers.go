package config

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/claude"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gollem/llm/openai"
	"github.com/stratospay/delphi/pkg/service/gateway"
	"github.com/stratospay/delphi/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Providers holds CLI flags for the LLM provider chain
type Providers struct {
	order          string
	timeoutSeconds int

	geminiProject  string
	geminiLocation string
	geminiModel    string

	claudeAPIKey string
	claudeModel  string

	openaiAPIKey string
	openaiModel  string
}

// Flags returns CLI flags for provider configuration
func (p *Providers) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "provider-order",
			Usage:       "Comma-separated provider fallback order (subset of gemini,claude,openai)",
			Value:       "gemini,claude,openai",
			Sources:     cli.EnvVars("DELPHI_PROVIDER_ORDER"),
			Destination: &p.order,
		},
		&cli.IntFlag{
			Name:        "provider-timeout",
			Usage:       "Per-provider attempt timeout in seconds",
			Value:       30,
			Sources:     cli.EnvVars("DELPHI_PROVIDER_TIMEOUT"),
			Destination: &p.timeoutSeconds,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini API",
			Sources:     cli.EnvVars("DELPHI_GEMINI_PROJECT"),
			Destination: &p.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini API",
			Value:       "us-central1",
			Sources:     cli.EnvVars("DELPHI_GEMINI_LOCATION"),
			Destination: &p.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Model label reported for Gemini replies",
			Value:       "gemini-2.0-flash",
			Sources:     cli.EnvVars("DELPHI_GEMINI_MODEL"),
			Destination: &p.geminiModel,
		},
		&cli.StringFlag{
			Name:        "claude-api-key",
			Usage:       "Anthropic API key",
			Sources:     cli.EnvVars("DELPHI_CLAUDE_API_KEY"),
			Destination: &p.claudeAPIKey,
		},
		&cli.StringFlag{
			Name:        "claude-model",
			Usage:       "Model label reported for Claude replies",
			Value:       "claude-sonnet-4",
			Sources:     cli.EnvVars("DELPHI_CLAUDE_MODEL"),
			Destination: &p.claudeModel,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key",
			Sources:     cli.EnvVars("DELPHI_OPENAI_API_KEY"),
			Destination: &p.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-model",
			Usage:       "Model label reported for OpenAI replies",
			Value:       "gpt-4o-mini",
			Sources:     cli.EnvVars("DELPHI_OPENAI_MODEL"),
			Destination: &p.openaiModel,
		},
	}
}

// LogAttrs returns log attributes for the provider configuration. API keys
// are never included.
func (p *Providers) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("order", p.order),
		slog.Bool("gemini", p.geminiProject != ""),
		slog.Bool("claude", p.claudeAPIKey != ""),
		slog.Bool("openai", p.openaiAPIKey != ""),
	}
}

// Configure builds the ordered provider chain from the configured
// credentials. Providers without credentials are skipped; an empty chain is
// allowed and yields degraded replies only.
func (p *Providers) Configure(ctx context.Context) ([]gateway.Provider, error) {
	timeout := time.Duration(p.timeoutSeconds) * time.Second

	build := map[string]func(context.Context) (gollem.LLMClient, string, error){
		"gemini": func(ctx context.Context) (gollem.LLMClient, string, error) {
			if p.geminiProject == "" {
				return nil, "", nil
			}
			client, err := gemini.New(ctx, p.geminiProject, p.geminiLocation)
			if err != nil {
				return nil, "", goerr.Wrap(err, "failed to create Gemini client")
			}
			return client, p.geminiModel, nil
		},
		"claude": func(ctx context.Context) (gollem.LLMClient, string, error) {
			if p.claudeAPIKey == "" {
				return nil, "", nil
			}
			client, err := claude.New(ctx, p.claudeAPIKey)
			if err != nil {
				return nil, "", goerr.Wrap(err, "failed to create Claude client")
			}
			return client, p.claudeModel, nil
		},
		"openai": func(ctx context.Context) (gollem.LLMClient, string, error) {
			if p.openaiAPIKey == "" {
				return nil, "", nil
			}
			client, err := openai.New(ctx, p.openaiAPIKey)
			if err != nil {
				return nil, "", goerr.Wrap(err, "failed to create OpenAI client")
			}
			return client, p.openaiModel, nil
		},
	}

	var providers []gateway.Provider
	for _, name := range strings.Split(p.order, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		factory, ok := build[name]
		if !ok {
			return nil, goerr.New("unknown provider in order", goerr.V("provider", name))
		}
		client, modelLabel, err := factory(ctx)
		if err != nil {
			return nil, err
		}
		if client == nil {
			continue
		}
		providers = append(providers, gateway.Provider{
			Name:    name,
			Model:   modelLabel,
			Client:  client,
			Timeout: timeout,
		})
	}

	if len(providers) == 0 {
		logging.Default().Warn("no LLM provider configured, all replies will be degraded")
	}
	return providers, nil
}
