package storage

import (
	"context"
	"log/slog"

	"github.com/Veraticus/treasury/internal/model"
	"github.com/google/uuid"
	"github.com/pelletier/go-toml"
)

// TopBalances has no index to lean on: it scans every account table for the
// requested currency, sorts in memory and slices out the page. Cost is linear
// in the number of accounts, which file deployments keep small.
//
// Keys in canonical UUID form are unique accounts; everything else is virtual.
// Entries without a balance, or with an unreadable one, are skipped.
func (s *FileStorage) TopBalances(ctx context.Context, kind model.AccountKind, currency model.Currency, offset, limit int) ([]model.BalanceEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validatePage(offset, limit); err != nil {
		return nil, err
	}
	if _, err := tableFor(kind); err != nil {
		return nil, err
	}

	field := balanceNode(currency)

	s.mu.RLock()
	entries := make(model.BalanceEntries, 0, len(s.tree.Keys()))
	for _, id := range s.tree.Keys() {
		if kindOf(id) != kind {
			continue
		}
		node, ok := s.tree.GetPath([]string{id}).(*toml.Tree)
		if !ok {
			continue
		}
		raw := node.GetPath([]string{field})
		if raw == nil {
			continue
		}
		balance, err := decodeBalance(raw)
		if err != nil {
			slog.Debug("Skipping unreadable balance", "account", id, "currency", currency.Name, "error", err)
			continue
		}
		entries = append(entries, model.BalanceEntry{ID: id, Balance: balance})
	}
	s.mu.RUnlock()

	entries.Sort()
	return entries.Window(offset, limit), nil
}

// kindOf treats only the canonical hyphenated form as a unique account, the
// form UniqueRef writes. uuid.Parse also accepts braced, urn and bare hex
// spellings, which remain valid virtual identifiers.
func kindOf(id string) model.AccountKind {
	parsed, err := uuid.Parse(id)
	if err != nil || parsed.String() != id {
		return model.KindVirtual
	}
	return model.KindUnique
}
