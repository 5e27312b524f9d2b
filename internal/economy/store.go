// Package economy implements the account store: get-or-create with currency
// backfill, the notification toggle and save coalescing for backends that
// buffer their writes.
package economy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/treasury/internal/common"
	"github.com/Veraticus/treasury/internal/model"
	"github.com/Veraticus/treasury/internal/service"
	"github.com/google/uuid"
)

// Options configures a Store.
type Options struct {
	// SaveInterval is the autosave period for buffering backends. Zero or
	// less flushes on every save request instead.
	SaveInterval time.Duration
	// JobNotificationsDefault is the flag new unique accounts start with.
	JobNotificationsDefault bool
}

// Store is the single entry point for account access. The backend is chosen
// once, at construction, and never changes.
type Store struct {
	backend    service.Backend
	currencies service.CurrencyRegistry
	messenger  service.Messenger
	// save is nil for backends that write through.
	save     *saveState
	autosave *autosave
	opts     Options
}

// NewStore wires a store around backend. When the backend buffers writes and
// SaveInterval is positive, an autosave loop is started; Close stops it.
func NewStore(backend service.Backend, currencies service.CurrencyRegistry, messenger service.Messenger, opts Options) *Store {
	s := newStore(backend, currencies, messenger, opts)
	if s.save != nil && opts.SaveInterval > 0 {
		ticker := time.NewTicker(opts.SaveInterval)
		s.autosave = startAutosave(context.Background(), s.save, ticker.C, ticker.Stop)
		slog.Info("Autosave enabled", "backend", backend.Name(), "interval", opts.SaveInterval)
	}
	return s
}

func newStore(backend service.Backend, currencies service.CurrencyRegistry, messenger service.Messenger, opts Options) *Store {
	if messenger == nil {
		messenger = discardMessenger{}
	}
	s := &Store{
		backend:    backend,
		currencies: currencies,
		messenger:  messenger,
		opts:       opts,
	}
	if flusher, ok := backend.(service.Flusher); ok {
		s.save = newSaveState(flusher)
	}
	return s
}

// Backend returns the active backend.
func (s *Store) Backend() service.Backend {
	return s.backend
}

// Currencies returns the currently registered currencies.
func (s *Store) Currencies() []model.Currency {
	return s.currencies.Currencies()
}

// DefaultCurrency returns the registry's default currency.
func (s *Store) DefaultCurrency() model.Currency {
	return s.currencies.DefaultCurrency()
}

// GetOrCreateAccount returns the account for a player, creating it or
// backfilling missing currencies first. Storage failures are logged and the
// account is returned regardless.
func (s *Store) GetOrCreateAccount(ctx context.Context, id uuid.UUID) *Account {
	return s.getOrCreate(ctx, model.UniqueRef(id))
}

// GetOrCreateVirtualAccount is GetOrCreateAccount for a virtual identifier.
func (s *Store) GetOrCreateVirtualAccount(ctx context.Context, identifier string) *Account {
	return s.getOrCreate(ctx, model.VirtualRef(identifier))
}

func (s *Store) getOrCreate(ctx context.Context, ref model.AccountRef) *Account {
	account := &Account{store: s, ref: ref}
	currencies := s.currencies.Currencies()

	exists, err := s.backend.AccountExists(ctx, ref)
	if err != nil {
		common.LogError(err, "Failed to check account existence", s.logFields(ref))
		return account
	}

	if !exists {
		defaults := model.AccountDefaults{
			Currencies:       currencies,
			Job:              model.DefaultJob,
			JobNotifications: s.opts.JobNotificationsDefault,
		}
		if err := s.backend.CreateAccount(ctx, ref, defaults); err != nil {
			common.LogError(err, "Failed to create account", s.logFields(ref))
			return account
		}
		slog.Debug("Created account", "account", ref.String(), "currencies", len(currencies))
		s.requestSave(ctx)
		return account
	}

	missing := s.missingCurrencies(ctx, ref, currencies)
	if len(missing) == 0 {
		return account
	}
	if err := s.backend.BackfillBalances(ctx, ref, missing); err != nil {
		fields := s.logFields(ref)
		fields["currencies"] = currencyNames(missing)
		common.LogError(err, "Failed to backfill balances", fields)
		return account
	}
	slog.Debug("Backfilled balances", "account", ref.String(), "currencies", len(missing))
	s.requestSave(ctx)
	return account
}

// missingCurrencies returns the currencies ref holds no balance for. A failed
// check counts as missing; backfill never overwrites an existing value.
func (s *Store) missingCurrencies(ctx context.Context, ref model.AccountRef, currencies []model.Currency) []model.Currency {
	var missing []model.Currency
	for _, currency := range currencies {
		has, err := s.backend.HasBalance(ctx, ref, currency)
		if err != nil || !has {
			missing = append(missing, currency)
		}
	}
	return missing
}

// HasAccount reports whether a player account exists.
func (s *Store) HasAccount(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.backend.AccountExists(ctx, model.UniqueRef(id))
}

// HasVirtualAccount reports whether a virtual account exists.
func (s *Store) HasVirtualAccount(ctx context.Context, identifier string) (bool, error) {
	return s.backend.AccountExists(ctx, model.VirtualRef(identifier))
}

// RequestConfigurationSave marks the document dirty. With autosave enabled
// the next tick writes it; otherwise it is flushed now. Write-through
// backends ignore it.
func (s *Store) RequestConfigurationSave(ctx context.Context) error {
	if s.save == nil {
		return nil
	}
	s.save.markDirty()
	if s.opts.SaveInterval > 0 {
		return nil
	}
	if err := s.save.flushNow(ctx); err != nil {
		return fmt.Errorf("failed to save accounts: %w", err)
	}
	return nil
}

// requestSave marks a mutation that has already been applied; a failed
// immediate flush leaves the document dirty for the next request.
func (s *Store) requestSave(ctx context.Context) {
	if err := s.RequestConfigurationSave(ctx); err != nil {
		common.LogWarn("Accounts save deferred", common.Fields{"backend": s.backend.Name(), "error": err.Error()})
	}
}

// Flush writes buffered mutations now, regardless of the autosave interval.
func (s *Store) Flush(ctx context.Context) error {
	if s.save == nil {
		return nil
	}
	return s.save.flushNow(ctx)
}

// Dirty reports whether buffered mutations are waiting for a flush.
func (s *Store) Dirty() bool {
	return s.save != nil && s.save.dirty()
}

// ErrReloadUnsupported is returned by Reload for backends without a document.
var ErrReloadUnsupported = errors.New("backend does not support reload")

// Reload re-reads the backend's durable state, discarding unflushed mutations.
func (s *Store) Reload(ctx context.Context) error {
	reloader, ok := s.backend.(service.Reloader)
	if !ok {
		return fmt.Errorf("%w: %s", ErrReloadUnsupported, s.backend.Name())
	}
	if err := reloader.Reload(ctx); err != nil {
		return fmt.Errorf("failed to reload accounts: %w", err)
	}
	if s.save != nil {
		s.save.clear()
	}
	return nil
}

// Close stops autosave, writes anything still pending and closes the backend.
func (s *Store) Close(ctx context.Context) error {
	if s.autosave != nil {
		s.autosave.Stop()
	}

	var flushErr error
	if s.save != nil {
		if _, err := s.save.flushIfDirty(ctx); err != nil {
			flushErr = fmt.Errorf("failed to save accounts on close: %w", err)
		}
	}

	if err := s.backend.Close(); err != nil {
		return errors.Join(flushErr, fmt.Errorf("failed to close backend: %w", err))
	}
	return flushErr
}

type discardMessenger struct{}

func (discardMessenger) Notify(context.Context, uuid.UUID, string) {}

func (s *Store) logFields(ref model.AccountRef) common.Fields {
	return common.Fields{"account": ref.String(), "backend": s.backend.Name()}
}

func currencyNames(currencies []model.Currency) []string {
	names := make([]string, 0, len(currencies))
	for _, currency := range currencies {
		names = append(names, currency.Name)
	}
	return names
}
