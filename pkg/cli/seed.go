package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/stratospay/delphi/pkg/cli/config"
	"github.com/stratospay/delphi/pkg/domain/model"
	"github.com/stratospay/delphi/pkg/domain/types"
	"github.com/stratospay/delphi/pkg/service/embedding"
	"github.com/stratospay/delphi/pkg/service/gateway"
	"github.com/stratospay/delphi/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// seedFile is the TOML layout of a knowledge seed file
type seedFile struct {
	Entries []seedEntry `toml:"entry"`
}

type seedEntry struct {
	OrgID    string   `toml:"org_id"`
	Category string   `toml:"category"`
	Question string   `toml:"question"`
	Answer   string   `toml:"answer"`
	Keywords []string `toml:"keywords"`
}

func cmdSeed() *cli.Command {
	var path string
	var repoCfg config.Repository
	var providerCfg config.Providers

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "file",
			Aliases:     []string{"f"},
			Usage:       "Path to the TOML knowledge seed file",
			Required:    true,
			Destination: &path,
		},
	}
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, providerCfg.Flags()...)

	return &cli.Command{
		Name:  "seed",
		Usage: "Load knowledge entries from a TOML file into the repository",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			raw, err := os.ReadFile(path)
			if err != nil {
				return goerr.Wrap(err, "failed to read seed file", goerr.V("path", path))
			}

			var seed seedFile
			if err := toml.Unmarshal(raw, &seed); err != nil {
				return goerr.Wrap(err, "failed to parse seed file", goerr.V("path", path))
			}
			if len(seed.Entries) == 0 {
				return goerr.New("seed file contains no entries", goerr.V("path", path))
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

			// Embeddings are computed up front when a provider is
			// configured, so the first search does not pay for backfill
			providers, err := providerCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to configure LLM providers")
			}
			embedder := embedding.New(gateway.New(providers).Primary())

			for i, e := range seed.Entries {
				if e.Question == "" || e.Answer == "" {
					return goerr.New("entry requires question and answer", goerr.V("index", i))
				}
				entry := &model.KnowledgeEntry{
					OrgID:    types.OrgID(e.OrgID),
					Category: types.Category(e.Category),
					Question: e.Question,
					Answer:   e.Answer,
					Keywords: e.Keywords,
					IsActive: true,
				}
				saved, err := repo.Knowledge().Upsert(ctx, entry)
				if err != nil {
					return goerr.Wrap(err, "failed to store knowledge entry", goerr.V("index", i))
				}

				if !embedder.HasProvider() {
					continue
				}
				vec, err := embedder.Embed(ctx, saved.Document())
				if err != nil {
					logging.Default().Warn("failed to embed entry, it will be backfilled on first search",
						"id", saved.ID, "error", err.Error())
					continue
				}
				if err := repo.Knowledge().SaveEmbedding(ctx, saved.OrgID, saved.ID, vec); err != nil {
					return goerr.Wrap(err, "failed to save embedding", goerr.V("id", saved.ID))
				}
			}

			logging.Default().Info("Seed completed", "entries", len(seed.Entries), "file", path)
			return nil
		},
	}
}
