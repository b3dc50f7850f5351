package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/axialworks/fanquote/internal/calc"
	"github.com/axialworks/fanquote/internal/config"
	"github.com/axialworks/fanquote/internal/quote"
	"github.com/axialworks/fanquote/internal/store"
)

// environment bundles the store and engine a command needs, with a single
// Close for whichever backend was opened.
type environment struct {
	Store  store.Store
	Engine *quote.Engine
}

func baseDefaults(p config.PricingConfig) calc.Defaults {
	return calc.Defaults{
		ComponentMarkup: p.DefaultMarkup,
		MotorMarkup:     p.DefaultMotorMarkup,
		HoursPerDay:     p.HoursPerDay,
	}
}

// initEngine opens the configured store backend, ensures its schema, and
// builds the quote engine on top of it.
func initEngine(ctx context.Context) (*environment, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	return &environment{
		Store:  st,
		Engine: quote.NewEngine(st, baseDefaults(cfg.Pricing)),
	}, nil
}

func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		st, err := store.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
		zap.L().Debug("sqlite store ready", zap.String("path", cfg.Store.DatabaseURL))
		return st, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
		zap.L().Debug("postgres store ready")
		return st, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func (e *environment) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}
