// Package storage provides the persistence backends for the account store: a
// relational backend over database/sql and a hierarchical document backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/treasury/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrInvalidKind        = errors.New("invalid account kind")
	ErrInvalidColumn      = errors.New("currency name cannot be used as a column")
	ErrColumnCollision    = errors.New("currency names collide")
	ErrUnsupportedDialect = errors.New("unsupported sql dialect")
	ErrUnknownBackend     = errors.New("unknown storage backend")
	ErrInvalidPagination  = errors.New("invalid offset or limit")
	ErrBalanceOutOfRange  = errors.New("balance exceeds the storable range")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRef checks the identifier and kind of an account reference.
func validateRef(ref model.AccountRef) error {
	if err := validateString(ref.ID, "account id"); err != nil {
		return err
	}
	switch ref.Kind {
	case model.KindUnique, model.KindVirtual:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidKind, int(ref.Kind))
	}
}

// validatePage checks ranking window bounds.
func validatePage(offset, limit int) error {
	if offset < 0 || limit < 0 {
		return fmt.Errorf("%w: offset=%d limit=%d", ErrInvalidPagination, offset, limit)
	}
	return nil
}
