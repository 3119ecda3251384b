package cli

import (
	"os"

	"github.com/aura-ai/aura/internal/config"
	"github.com/aura-ai/aura/internal/embedding"
	"github.com/aura-ai/aura/internal/guard"
	"github.com/aura-ai/aura/internal/observe"
	"github.com/aura-ai/aura/internal/store"
)

func newObserver() *observe.Observer {
	if jsonLogs {
		return observe.NewJSON(os.Stdout, verbose)
	}
	return observe.New(os.Stdout, verbose)
}

func loadConfig(obs *observe.Observer) *config.Config {
	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			obs.Log().Fatal().Err(err).Msg("Failed to load config")
		}
		cfg = *loaded
	}
	cfg.ApplyEnv()
	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
	}
	return &cfg
}

func getStore(obs *observe.Observer, cfg *config.Config) store.Storage {
	s, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		obs.Log().Fatal().Err(err).Msg("Failed to init store")
	}
	return s
}

func newResolver(obs *observe.Observer, cfg *config.Config) *embedding.Resolver {
	r := embedding.NewResolver(obs)
	if cfg.EmbeddingPath != "" {
		r.UsePath(cfg.EmbeddingPath)
	}
	return r
}

func newGuard(cfg *config.Config) *guard.Guard {
	policy := guard.DefaultPolicy
	if len(cfg.AllowedWriteGlobs) > 0 {
		policy = guard.Policy{AllowedWriteGlobs: cfg.AllowedWriteGlobs}
	}
	return guard.New(policy)
}
