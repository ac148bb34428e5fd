package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/novadental/verify-cli/internal/catalog"
	"github.com/novadental/verify-cli/internal/model"
	"github.com/novadental/verify-cli/internal/pipeline"
	"github.com/novadental/verify-cli/internal/store"
	"github.com/novadental/verify-cli/pkg/eligibility"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.SQLitePath
		if dsn == "" {
			dsn = "verify.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initCatalog() (*model.CatalogRegistry, error) {
	if cfg.Catalog.TemplatePath != "" {
		return catalog.LoadFromFile(cfg.Catalog.TemplatePath)
	}
	return catalog.LoadDefault()
}

func initSource() (eligibility.Source, error) {
	if cfg.Eligibility.Key == "" {
		return nil, eris.New("eligibility API key is required (VERIFY_ELIGIBILITY_KEY)")
	}

	opts := []eligibility.Option{
		eligibility.WithRateLimit(cfg.Eligibility.RatePerSec),
	}
	if cfg.Eligibility.BaseURL != "" {
		opts = append(opts, eligibility.WithBaseURL(cfg.Eligibility.BaseURL))
	}
	if cfg.Eligibility.TimeoutSecs > 0 {
		opts = append(opts, eligibility.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Eligibility.TimeoutSecs) * time.Second,
		}))
	}

	return eligibility.NewClient(cfg.Eligibility.Key, opts...), nil
}

func configuredStages() []model.Stage {
	if cfg.Pipeline.StageModel == "extended" {
		return model.ExtendedStages()
	}
	return model.DefaultStages()
}

// pipelineEnv bundles the wired dependencies a command needs to run
// verification passes.
type pipelineEnv struct {
	Store  store.Store
	Runner *pipeline.Runner
}

func (e *pipelineEnv) Close() {
	_ = e.Store.Close()
}

// initPipeline builds a migrated store, the eligibility source and the
// runner over them. Commands that only read the store use initStore
// directly instead.
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	return initPipelineWithSource(ctx, nil)
}

// initPipelineWithSource lets the import command substitute a file-backed
// source for the HTTP client.
func initPipelineWithSource(ctx context.Context, src eligibility.Source) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	reg, err := initCatalog()
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	if src == nil {
		src, err = initSource()
		if err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
	}

	runner := pipeline.NewRunner(st, src, reg.Clone(), configuredStages())
	return &pipelineEnv{Store: st, Runner: runner}, nil
}
