package document

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mohammedsanin/NeuroBlock/errors"
	"github.com/Mohammedsanin/NeuroBlock/metric"
)

// Entry describes one saved pipeline for listings.
type Entry struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	SavedAt time.Time `json:"saved_at"`
}

// Store persists pipeline documents as JSON files under a data directory.
// IDs are UUIDs minted on save; writes go through a temp file and rename
// so a crash can never leave a half-written pipeline behind.
type Store struct {
	dir     string
	logger  *slog.Logger
	metrics *metric.Metrics
	mu      sync.Mutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches operation counters.
func WithMetrics(m *metric.Metrics) StoreOption {
	return func(s *Store) {
		s.metrics = m
	}
}

// NewStore creates a document store rooted at dir, creating it if needed.
func NewStore(dir string, opts ...StoreOption) (*Store, error) {
	if dir == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("data directory is required"), "Store", "NewStore", "config check")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.WrapFatal(err, "Store", "NewStore", "create data directory")
	}

	s := &Store{
		dir:    dir,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Save writes the document under a fresh UUID and returns its listing
// entry. The document bytes come from Marshal, so a later Load sees
// exactly what Export produced.
func (s *Store) Save(doc Document) (Entry, error) {
	data, err := doc.Marshal()
	if err != nil {
		s.metrics.RecordDocumentOp("save", "error")
		return Entry{}, err
	}

	id := uuid.NewString()
	final := s.path(id)
	tmp := final + ".tmp"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(tmp, data, 0644); err != nil {
		s.metrics.RecordDocumentOp("save", "error")
		return Entry{}, errors.WrapTransient(err, "Store", "Save", "write temp file")
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		s.metrics.RecordDocumentOp("save", "error")
		return Entry{}, errors.WrapTransient(err, "Store", "Save", "commit file")
	}

	s.metrics.RecordDocumentOp("save", "ok")
	s.logger.Info("pipeline saved", "id", id, "name", doc.Name)
	return Entry{ID: id, Name: doc.Name, SavedAt: time.Now().UTC()}, nil
}

// Load reads and fully validates a saved document. A file that fails
// validation (hand-edited, truncated) is reported as an import rejection,
// exactly like a bad upload.
func (s *Store) Load(id string) (*Document, error) {
	if err := validateID(id); err != nil {
		s.metrics.RecordDocumentOp("load", "error")
		return nil, err
	}

	raw, err := os.ReadFile(s.path(id))
	if err != nil {
		s.metrics.RecordDocumentOp("load", "error")
		if os.IsNotExist(err) {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %s", errors.ErrDocumentNotFound, id),
				"Store", "Load", "locate file")
		}
		return nil, errors.WrapTransient(err, "Store", "Load", "read file")
	}

	doc, err := Parse(raw)
	if err != nil {
		s.metrics.RecordDocumentOp("load", "error")
		return nil, err
	}

	s.metrics.RecordDocumentOp("load", "ok")
	return doc, nil
}

// List returns all saved pipelines, newest first. Unreadable files are
// skipped with a warning rather than failing the whole listing.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		s.metrics.RecordDocumentOp("list", "error")
		return nil, errors.WrapTransient(err, "Store", "List", "read data directory")
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		if validateID(id) != nil {
			continue
		}

		info, err := de.Info()
		if err != nil {
			continue
		}
		raw, err := os.ReadFile(s.path(id))
		if err != nil {
			continue
		}
		var head struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			s.logger.Warn("skipping unreadable pipeline file", "id", id, "error", err)
			continue
		}

		entries = append(entries, Entry{
			ID:      id,
			Name:    head.Name,
			SavedAt: info.ModTime().UTC(),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].SavedAt.Equal(entries[j].SavedAt) {
			return entries[i].SavedAt.After(entries[j].SavedAt)
		}
		return entries[i].ID < entries[j].ID
	})

	s.metrics.RecordDocumentOp("list", "ok")
	return entries, nil
}

// Delete removes a saved pipeline.
func (s *Store) Delete(id string) error {
	if err := validateID(id); err != nil {
		s.metrics.RecordDocumentOp("delete", "error")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil {
		s.metrics.RecordDocumentOp("delete", "error")
		if os.IsNotExist(err) {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %s", errors.ErrDocumentNotFound, id),
				"Store", "Delete", "locate file")
		}
		return errors.WrapTransient(err, "Store", "Delete", "remove file")
	}

	s.metrics.RecordDocumentOp("delete", "ok")
	s.logger.Info("pipeline deleted", "id", id)
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// validateID accepts UUIDs only, which rules out path traversal by
// construction.
func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: malformed pipeline id %q", errors.ErrDocumentNotFound, id),
			"Store", "validateID", "parse id")
	}
	return nil
}
