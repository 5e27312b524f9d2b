package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/treasury/internal/cli"
	"github.com/Veraticus/treasury/internal/common"
	"github.com/Veraticus/treasury/internal/currency"
	"github.com/Veraticus/treasury/internal/economy"
	"github.com/Veraticus/treasury/internal/identity"
	"github.com/Veraticus/treasury/internal/model"
	"github.com/Veraticus/treasury/internal/ranking"
	"github.com/Veraticus/treasury/internal/service"
	"github.com/Veraticus/treasury/internal/storage"
	"github.com/Veraticus/treasury/internal/worker"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// application bundles everything a command needs, built from the loaded config.
type application struct {
	backend  service.Backend
	registry *currency.Registry
	store    *economy.Store
	engine   *ranking.Engine
	pool     *worker.Pool
}

func openApplication(cmd *cobra.Command) (*application, error) {
	ctx := cmd.Context()
	cfg := appConfig
	if cfg == nil {
		return nil, fmt.Errorf("%w: configuration not loaded", common.ErrMissingConfig)
	}

	currencies, err := cfg.CurrencyModels()
	if err != nil {
		return nil, err
	}
	registry, err := currency.NewRegistry(currencies)
	if err != nil {
		return nil, fmt.Errorf("invalid currencies: %w", err)
	}

	backend, err := storage.Open(ctx, cfg.StorageOptions(), registry.Currencies())
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	names, invalid := identity.ParseNames(cfg.Names)
	for _, key := range invalid {
		slog.Warn("Ignoring name entry with invalid id", "key", key)
	}
	resolver := identity.NewCachingResolver(names, cfg.CacheTTL())

	store := economy.NewStore(backend, registry, cli.NewConsoleMessenger(cmd.OutOrStdout()), economy.Options{
		SaveInterval:            cfg.SaveInterval(),
		JobNotificationsDefault: cfg.Jobs.NotificationsDefault,
	})

	return &application{
		backend:  backend,
		registry: registry,
		store:    store,
		engine:   ranking.NewEngine(backend, registry, resolver, ranking.Options{PageSize: cfg.Leaderboard.PageSize}),
		pool:     worker.New(cfg.Leaderboard.Workers, cfg.Leaderboard.QueueSize),
	}, nil
}

func (a *application) Close(ctx context.Context) error {
	a.pool.Close()
	return a.store.Close(ctx)
}

// withApplication opens the application, runs fn and closes it again,
// reporting a close failure only when fn succeeded.
func withApplication(cmd *cobra.Command, fn func(ctx context.Context, app *application) error) (err error) {
	app, err := openApplication(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.Close(context.WithoutCancel(cmd.Context())); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(cmd.Context(), app)
}

// account resolves an account argument, creating the account if needed.
func (a *application) account(ctx context.Context, id string, virtual bool) (*economy.Account, error) {
	if virtual {
		if strings.TrimSpace(id) == "" {
			return nil, common.NewUserError("virtual account id cannot be empty", nil)
		}
		return a.store.GetOrCreateVirtualAccount(ctx, id), nil
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, common.NewUserError(fmt.Sprintf("%q is not a player id; use --virtual for virtual accounts", id), err)
	}
	return a.store.GetOrCreateAccount(ctx, uid), nil
}

func (a *application) currency(name string) (model.Currency, error) {
	if name == "" {
		return a.registry.DefaultCurrency(), nil
	}
	c, ok := a.registry.LookupCurrency(name)
	if !ok {
		return model.Currency{}, common.NewUserError(fmt.Sprintf("unknown currency %q", name), common.ErrUnknownCurrency)
	}
	return c, nil
}
