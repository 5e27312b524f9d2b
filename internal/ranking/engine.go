// Package ranking builds paginated balance leaderboards on top of a backend's
// TopBalances query.
package ranking

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/treasury/internal/common"
	"github.com/Veraticus/treasury/internal/model"
	"github.com/Veraticus/treasury/internal/service"
	"github.com/google/uuid"
)

// DefaultPageSize is the number of rows per leaderboard page.
const DefaultPageSize = 5

// UnknownName is displayed for players whose name cannot be resolved.
const UnknownName = "unknown"

// Options configures an Engine.
type Options struct {
	PageSize int
}

// Request selects one leaderboard page. An empty or unknown Currency means the
// default currency; pages below 1 are treated as 1.
type Request struct {
	Currency string
	Kind     model.AccountKind
	Page     int
}

// Executor runs a task off the caller's goroutine.
type Executor interface {
	Submit(ctx context.Context, task func(context.Context)) error
}

// Engine answers leaderboard requests. It holds no per-request state.
type Engine struct {
	backend    service.Backend
	currencies service.CurrencyRegistry
	names      service.NameResolver
	pageSize   int
}

// NewEngine creates a ranking engine.
func NewEngine(backend service.Backend, currencies service.CurrencyRegistry, names service.NameResolver, opts Options) *Engine {
	if opts.PageSize < 1 {
		opts.PageSize = DefaultPageSize
	}
	return &Engine{
		backend:    backend,
		currencies: currencies,
		names:      names,
		pageSize:   opts.PageSize,
	}
}

// PageSize returns the configured rows per page.
func (e *Engine) PageSize() int {
	return e.pageSize
}

// TopBalances returns one page of the leaderboard. Backend failures are logged
// and produce a page without rows.
//
// HasNext is set whenever the page is full, so a leaderboard ending exactly on
// a page boundary advertises one empty page after it.
func (e *Engine) TopBalances(ctx context.Context, req Request) model.BalancePage {
	currency := e.resolveCurrency(req.Currency)
	page := req.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * e.pageSize

	result := model.BalancePage{
		Currency: currency,
		Kind:     req.Kind,
		Page:     page,
		PageSize: e.pageSize,
		HasPrev:  page > 1,
	}

	entries, err := e.backend.TopBalances(ctx, req.Kind, currency, offset, e.pageSize)
	if err != nil {
		common.LogError(err, "Failed to query top balances", common.Fields{
			"backend":  e.backend.Name(),
			"currency": currency.Name,
			"kind":     req.Kind.String(),
			"page":     page,
		})
		result.Rows = []model.RankedBalance{}
		return result
	}

	result.Rows = make([]model.RankedBalance, len(entries))
	for i, entry := range entries {
		result.Rows[i] = model.RankedBalance{
			Rank:        offset + i + 1,
			ID:          entry.ID,
			DisplayName: e.displayName(ctx, req.Kind, entry.ID),
			Balance:     entry.Balance,
			Formatted:   FormatBalance(currency.Symbol, entry.Balance),
		}
	}
	result.HasNext = len(entries) == e.pageSize
	return result
}

// Submit computes a page on executor and hands it to deliver from the worker
// goroutine. Pages for concurrent requests may be delivered in any order.
func (e *Engine) Submit(ctx context.Context, executor Executor, req Request, deliver func(model.BalancePage)) error {
	err := executor.Submit(ctx, func(ctx context.Context) {
		deliver(e.TopBalances(ctx, req))
	})
	if err != nil {
		return fmt.Errorf("failed to schedule leaderboard query: %w", err)
	}
	return nil
}

func (e *Engine) resolveCurrency(name string) model.Currency {
	if name == "" {
		return e.currencies.DefaultCurrency()
	}
	currency, ok := e.currencies.LookupCurrency(name)
	if !ok {
		slog.Debug("Unknown leaderboard currency, using default", "currency", name)
		return e.currencies.DefaultCurrency()
	}
	return currency
}

func (e *Engine) displayName(ctx context.Context, kind model.AccountKind, id string) string {
	if kind == model.KindVirtual {
		return id
	}
	if e.names == nil {
		return UnknownName
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return UnknownName
	}
	name, ok := e.names.ResolveDisplayName(ctx, uid)
	if !ok || name == "" {
		return UnknownName
	}
	return name
}
