package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/stratospay/delphi/pkg/agent/tool"
	"github.com/stratospay/delphi/pkg/cli/config"
	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/domain/types"
	"github.com/stratospay/delphi/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdAsk() *cli.Command {
	var orgID string
	var userID string
	var sessionID string
	var modelHint string
	var useAgent bool
	var appCfg config.AppConfig
	var repoCfg config.Repository
	var providerCfg config.Providers

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "org",
			Usage:       "Organization ID of the tenant",
			Required:    true,
			Sources:     cli.EnvVars("DELPHI_ORG"),
			Destination: &orgID,
		},
		&cli.StringFlag{
			Name:        "user",
			Usage:       "User ID of the caller",
			Value:       "cli",
			Sources:     cli.EnvVars("DELPHI_USER"),
			Destination: &userID,
		},
		&cli.StringFlag{
			Name:        "session",
			Usage:       "Session ID to continue (new session when empty)",
			Destination: &sessionID,
		},
		&cli.StringFlag{
			Name:        "model",
			Usage:       "Preferred provider or model name",
			Destination: &modelHint,
		},
		&cli.BoolFlag{
			Name:        "agent",
			Usage:       "Run the tool-capable agent instead of plain chat",
			Destination: &useAgent,
		},
	}
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, providerCfg.Flags()...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask a single question from the command line",
		ArgsUsage: "<question>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			question := c.Args().First()
			if question == "" {
				return goerr.New("a question argument is required")
			}

			if err := appCfg.Load(); err != nil {
				return goerr.Wrap(err, "failed to load application configuration")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					logging.Default().Error("failed to close repository", "error", err.Error())
				}
			}()

			providers, err := providerCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure LLM providers")
			}

			uc, err := buildUseCases(ctx, &appCfg, repo, providers)
			if err != nil {
				return err
			}

			input := &model.QueryInput{
				Query:     question,
				SessionID: types.SessionID(sessionID),
				Scope: model.Scope{
					OrgID:  types.OrgID(orgID),
					UserID: types.UserID(userID),
				},
				ModelHint: modelHint,
			}

			if useAgent {
				out, err := uc.RunAgent(agentProgress(ctx, os.Stdout), input)
				if err != nil {
					return goerr.Wrap(err, "agent run failed")
				}
				printAgentResult(out.Content, out.Trace, out.Confidence, string(out.SessionID))
				return nil
			}

			out, err := uc.HandleQuery(ctx, input)
			if err != nil {
				return goerr.Wrap(err, "query failed")
			}

			color.New(color.FgCyan, color.Bold).Println(out.Content)
			fmt.Printf("\n%s session=%s model=%s knowledge=%d latency=%dms\n",
				color.HiBlackString("--"),
				out.SessionID, out.ModelUsed, out.KnowledgeUsed, out.LatencyMs,
			)
			return nil
		},
	}
}

// agentProgress wires tool progress messages to w so the user sees what the
// agent is doing while it runs.
func agentProgress(ctx context.Context, w io.Writer) context.Context {
	return tool.WithUpdate(ctx, func(_ context.Context, message string) {
		fmt.Fprintf(w, "%s %s\n", color.HiBlackString("*"), message)
	})
}

func printAgentResult(content string, trace []model.TraceStep, confidence float64, sessionID string) {
	for _, step := range trace {
		color.New(color.FgYellow).Printf("[%d] %s\n", step.Step, step.Action)
		if step.Observation != "" {
			fmt.Printf("    %s\n", color.HiBlackString(step.Observation))
		}
	}
	color.New(color.FgCyan, color.Bold).Println(content)
	fmt.Printf("\n%s session=%s confidence=%.1f\n", color.HiBlackString("--"), sessionID, confidence)
}
