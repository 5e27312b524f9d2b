package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/Veraticus/treasury/internal/common"
	"github.com/Veraticus/treasury/internal/model"
	"github.com/pelletier/go-toml"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
)

// ErrUnsafeKey is returned for identifiers that cannot be written as a table
// key and read back unchanged.
var ErrUnsafeKey = errors.New("identifier cannot be stored as a document key")

// ErrUnreadableDocument is returned by Flush when the encoded document would
// not parse; the file on disk is left as it was.
var ErrUnreadableDocument = errors.New("encoded accounts document does not parse")

// Document node names.
const (
	jobNode              = "job"
	jobNotificationsNode = "jobnotifications"
)

// FileStorage implements service.Backend on a single TOML document holding one
// table per account identifier. Mutations change the in-memory tree; the
// document reaches disk only on Flush.
type FileStorage struct {
	fs   afero.Fs
	tree *toml.Tree
	path string
	// mu serialises every tree mutation and every snapshot taken for a flush.
	mu sync.RWMutex
}

// NewFileStorage loads the accounts document at path, creating an empty one if
// it does not exist yet.
func NewFileStorage(fs afero.Fs, path string) (*FileStorage, error) {
	if err := validateString(path, "path"); err != nil {
		return nil, err
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}

	s := &FileStorage{fs: fs, path: path}

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat accounts file: %w", err)
	}
	if !exists {
		s.tree = emptyTree()
		if err := s.Flush(context.Background()); err != nil {
			return nil, err
		}
		return s, nil
	}

	tree, err := s.load()
	if err != nil {
		return nil, err
	}
	s.tree = tree
	return s, nil
}

func emptyTree() *toml.Tree {
	tree, _ := toml.TreeFromMap(map[string]interface{}{})
	return tree
}

func (s *FileStorage) load() (*toml.Tree, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}
	if len(data) == 0 {
		return emptyTree(), nil
	}
	tree, err := toml.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse accounts file %s: %w", s.path, err)
	}
	return tree, nil
}

// Name identifies the backend in logs.
func (s *FileStorage) Name() string {
	return "file"
}

// Path returns the location of the accounts document.
func (s *FileStorage) Path() string {
	return s.path
}

// Flush writes a snapshot of the whole document. The snapshot is taken under
// the mutation lock; the write happens outside it through a temp file and rename.
func (s *FileStorage) Flush(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	s.mu.RLock()
	data, err := s.tree.Marshal()
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode accounts document: %w", err)
	}
	if _, err := toml.LoadBytes(data); err != nil {
		return fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("failed to create accounts directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write accounts file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to replace accounts file: %w", err)
	}

	slog.Debug("Flushed accounts document", "path", s.path, "bytes", len(data))
	return nil
}

// Reload replaces the in-memory document with the one on disk. Unflushed
// mutations are discarded.
func (s *FileStorage) Reload(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tree, err := s.load()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			tree = emptyTree()
		} else {
			return err
		}
	}

	s.mu.Lock()
	s.tree = tree
	s.mu.Unlock()

	slog.Info("Reloaded accounts document", "path", s.path)
	return nil
}

// Close is a no-op; flushing is owned by the account store.
func (s *FileStorage) Close() error {
	return nil
}

// node returns the table for id, or nil. Callers hold s.mu.
func (s *FileStorage) node(id string) *toml.Tree {
	sub, _ := s.tree.GetPath([]string{id}).(*toml.Tree)
	return sub
}

// AccountExists reports whether the document holds any value for ref.
// Unique and virtual accounts share one namespace in the document.
func (s *FileStorage) AccountExists(ctx context.Context, ref model.AccountRef) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateDocumentRef(ref); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value := s.tree.GetPath([]string{ref.ID})
	if value == nil {
		return false, nil
	}
	if sub, ok := value.(*toml.Tree); ok {
		return len(sub.Keys()) > 0, nil
	}
	return true, nil
}

// CreateAccount writes the starting balances and, for unique accounts, the job
// fields. Existing balances and attributes are left alone.
func (s *FileStorage) CreateAccount(ctx context.Context, ref model.AccountRef, defaults model.AccountDefaults) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDocumentRef(ref); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.backfillLocked(ref.ID, defaults.Currencies)

	if ref.Kind == model.KindUnique {
		job := defaults.Job
		if job == "" {
			job = model.DefaultJob
		}
		if !s.tree.HasPath([]string{ref.ID, jobNode}) {
			s.tree.SetPath([]string{ref.ID, jobNode}, job)
		}
		if !s.tree.HasPath([]string{ref.ID, jobNotificationsNode}) {
			s.tree.SetPath([]string{ref.ID, jobNotificationsNode}, defaults.JobNotifications)
		}
	}
	return nil
}

// BackfillBalances adds a starting balance for every currency ref lacks.
func (s *FileStorage) BackfillBalances(ctx context.Context, ref model.AccountRef, currencies []model.Currency) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDocumentRef(ref); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.backfillLocked(ref.ID, currencies)
	return nil
}

func (s *FileStorage) backfillLocked(id string, currencies []model.Currency) {
	for _, currency := range currencies {
		path := []string{id, balanceNode(currency)}
		if s.tree.HasPath(path) {
			continue
		}
		s.tree.SetPath(path, encodeBalance(currency.StartingBalance))
	}
}

// HasBalance reports whether ref has a balance node for currency.
func (s *FileStorage) HasBalance(ctx context.Context, ref model.AccountRef, currency model.Currency) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateDocumentRef(ref); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tree.HasPath([]string{ref.ID, balanceNode(currency)}), nil
}

// GetBalance returns ref's balance for currency.
func (s *FileStorage) GetBalance(ctx context.Context, ref model.AccountRef, currency model.Currency) (decimal.Decimal, error) {
	if err := validateContext(ctx); err != nil {
		return decimal.Zero, err
	}
	if err := validateDocumentRef(ref); err != nil {
		return decimal.Zero, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	node := s.node(ref.ID)
	if node == nil {
		return decimal.Zero, fmt.Errorf("%w: %s", common.ErrAccountNotFound, ref)
	}
	raw := node.GetPath([]string{balanceNode(currency)})
	if raw == nil {
		return decimal.Zero, fmt.Errorf("%w: %s has no %s balance", common.ErrNoBalance, ref, currency.Name)
	}
	balance, err := decodeBalance(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s balance for %s: %w", currency.Name, ref, err)
	}
	return balance, nil
}

// SetBalance replaces ref's balance for currency in the in-memory document.
func (s *FileStorage) SetBalance(ctx context.Context, ref model.AccountRef, currency model.Currency, amount decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDocumentRef(ref); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.node(ref.ID) == nil {
		return fmt.Errorf("%w: %s", common.ErrAccountNotFound, ref)
	}
	s.tree.SetPath([]string{ref.ID, balanceNode(currency)}, encodeBalance(amount))
	return nil
}

// GetJob returns the job of a unique account.
func (s *FileStorage) GetJob(ctx context.Context, id string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(id, "account id"); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	node := s.node(id)
	if node == nil {
		return "", fmt.Errorf("%w: %s", common.ErrAccountNotFound, id)
	}
	job, ok := node.GetPath([]string{jobNode}).(string)
	if !ok || job == "" {
		return model.DefaultJob, nil
	}
	return job, nil
}

// SetJob updates the job of a unique account.
func (s *FileStorage) SetJob(ctx context.Context, id, job string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "account id"); err != nil {
		return err
	}
	if err := validateString(job, "job"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.node(id) == nil {
		return fmt.Errorf("%w: %s", common.ErrAccountNotFound, id)
	}
	s.tree.SetPath([]string{id, jobNode}, job)
	return nil
}

// GetJobNotificationState returns the notification flag, treating a missing
// node on an existing account as enabled.
func (s *FileStorage) GetJobNotificationState(ctx context.Context, id string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(id, "account id"); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	node := s.node(id)
	if node == nil {
		return false, fmt.Errorf("%w: %s", common.ErrAccountNotFound, id)
	}
	enabled, ok := node.GetPath([]string{jobNotificationsNode}).(bool)
	if !ok {
		return true, nil
	}
	return enabled, nil
}

// SetJobNotificationState updates the notification flag.
func (s *FileStorage) SetJobNotificationState(ctx context.Context, id string, enabled bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "account id"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.node(id) == nil {
		return fmt.Errorf("%w: %s", common.ErrAccountNotFound, id)
	}
	s.tree.SetPath([]string{id, jobNotificationsNode}, enabled)
	return nil
}

// encodeBalance stores balances as fixed two-decimal strings so no value ever
// passes through a float.
func encodeBalance(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// decodeBalance accepts the string form written by encodeBalance as well as
// hand-edited numeric values.
func decodeBalance(raw interface{}) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, err
		}
		return d.Round(2), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v).Round(2), nil
	default:
		return decimal.Zero, fmt.Errorf("unexpected balance type %T", raw)
	}
}

// validateDocumentRef extends validateRef with the table key rules of the
// document encoder: table headers end at the first ']', cannot contain '[',
// and quoted keys are read back without unescaping.
func validateDocumentRef(ref model.AccountRef) error {
	if err := validateRef(ref); err != nil {
		return err
	}
	if strings.ContainsAny(ref.ID, `"\[]`) || strings.ContainsFunc(ref.ID, unicode.IsControl) {
		return fmt.Errorf("%w: %q", ErrUnsafeKey, ref.ID)
	}
	return nil
}
