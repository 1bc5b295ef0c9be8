package cli

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lazypower/nanobrain/internal/config"
	"github.com/lazypower/nanobrain/internal/engine"
	"github.com/lazypower/nanobrain/internal/infer"
	"github.com/lazypower/nanobrain/internal/learn"
	"github.com/lazypower/nanobrain/internal/store"
)

// openStore opens the configured backend. The returned func releases it.
func openStore(cfg *config.Config) (engine.Store, func() error, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		path := cfg.Store.DBPath
		if path == "" {
			var err error
			path, err = store.DefaultDBPath()
			if err != nil {
				return nil, nil, fmt.Errorf("resolve db path: %w", err)
			}
		}
		db, err := store.OpenSQLite(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		return db, db.Close, nil
	default:
		dir := cfg.Store.Dir
		if dir == "" {
			var err error
			dir, err = store.DefaultDir()
			if err != nil {
				return nil, nil, fmt.Errorf("resolve store dir: %w", err)
			}
		}
		fs, err := store.NewFileStore(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		return fs, func() error { return nil }, nil
	}
}

// newEngine builds an Engine over st from the learning and inference config.
func newEngine(cfg *config.Config, st engine.Store, log zerolog.Logger) *engine.Engine {
	learner := learn.New(learn.Options{
		WordIncrement:   cfg.Learning.WordIncrement,
		LetterIncrement: cfg.Learning.LetterIncrement,
		Decay:           cfg.Learning.Decay,
	}, log)

	var rng infer.Rand
	if cfg.Inference.Seed != 0 {
		rng = infer.NewSeeded(cfg.Inference.Seed)
	}
	return engine.New(st, learner, infer.New(rng, cfg.Inference.MaxLength), log)
}
