package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/thruflo/wreckit/internal/logging"
)

// Directory and file names under the repository root.
const (
	DirName          = ".wreckit"
	ItemsDirName     = "items"
	ItemFileName     = "item.json"
	ProgressFileName = "batch-progress.json"
	ResearchFileName = "research.md"
	PlanFileName     = "plan.md"
	PRDFileName      = "prd.json"
	defaultDirPerm   = 0o755
	defaultFilePerm  = 0o644
)

// ErrItemNotFound is returned when no item.json exists for an id.
var ErrItemNotFound = errors.New("item not found")

// Store handles the on-disk .wreckit tree of a repository.
type Store struct {
	basePath string
	now      func() time.Time
	log      *logging.Logger
}

// NewStore creates a Store rooted at the repository base path.
// Items live in .wreckit/items/<id>/item.json.
func NewStore(basePath string) *Store {
	return &Store{
		basePath: basePath,
		now:      time.Now,
		log:      logging.Default().Named("state"),
	}
}

// SetClock overrides the time source used for updated_at stamps.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// SetLogger replaces the logger used for skipped records.
func (s *Store) SetLogger(l *logging.Logger) {
	s.log = l.Named("state")
}

// BasePath returns the repository root.
func (s *Store) BasePath() string {
	return s.basePath
}

// Dir returns the .wreckit directory.
func (s *Store) Dir() string {
	return filepath.Join(s.basePath, DirName)
}

func (s *Store) itemsDir() string {
	return filepath.Join(s.Dir(), ItemsDirName)
}

// ItemDir returns the directory holding an item's record and artifacts.
func (s *Store) ItemDir(id string) string {
	return filepath.Join(s.itemsDir(), filepath.FromSlash(id))
}

// ArtifactPath returns the path of a named artifact of an item.
func (s *Store) ArtifactPath(id, name string) string {
	return filepath.Join(s.ItemDir(id), name)
}

// HasArtifact reports whether a non-empty artifact file exists.
func (s *Store) HasArtifact(id, name string) bool {
	info, err := os.Stat(s.ArtifactPath(id, name))
	return err == nil && !info.IsDir() && info.Size() > 0
}

// ProgressPath returns the path of the batch progress record.
func (s *Store) ProgressPath() string {
	return filepath.Join(s.Dir(), ProgressFileName)
}

// GetItem reads an item. Missing items return an error wrapping
// ErrItemNotFound.
func (s *Store) GetItem(id string) (*Item, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.ItemDir(id), ItemFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
		}
		return nil, fmt.Errorf("failed to read item %s: %w", id, err)
	}

	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to parse item %s: %w", id, err)
	}
	// The directory is the source of truth for the id.
	item.ID = id
	return &item, nil
}

// ListItems returns every readable item, sorted with CompareIDs.
// Unparseable item files are skipped with a warning.
func (s *Store) ListItems() ([]*Item, error) {
	root := s.itemsDir()

	var items []*Item
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == root {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() || d.Name() != ItemFileName {
			return nil
		}

		rel, err := filepath.Rel(root, filepath.Dir(p))
		if err != nil {
			return err
		}
		id := filepath.ToSlash(rel)
		if ValidateID(id) != nil {
			return nil
		}

		item, err := s.GetItem(id)
		if err != nil {
			s.log.Warn("skipping unreadable item", "item", id, "error", err)
			return nil
		}
		items = append(items, item)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}

	SortItems(items)
	return items, nil
}

// SaveItem stamps UpdatedAt (and CreatedAt on first save) and writes the
// item atomically.
func (s *Store) SaveItem(item *Item) error {
	if err := ValidateID(item.ID); err != nil {
		return err
	}
	if !item.State.Valid() {
		return fmt.Errorf("item %s has invalid state %q", item.ID, item.State)
	}

	now := s.now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	path := filepath.Join(s.ItemDir(item.ID), ItemFileName)
	if err := WriteFileAtomic(path, append(data, '\n'), defaultFilePerm); err != nil {
		return fmt.Errorf("failed to write item %s: %w", item.ID, err)
	}
	return nil
}

// LoadPRD reads an item's prd.json. A missing file returns nil, nil.
func (s *Store) LoadPRD(id string) (*PRD, error) {
	data, err := os.ReadFile(s.ArtifactPath(id, PRDFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read prd for %s: %w", id, err)
	}

	var prd PRD
	if err := json.Unmarshal(data, &prd); err != nil {
		return nil, fmt.Errorf("failed to parse prd for %s: %w", id, err)
	}
	return &prd, nil
}

// LoadBatchProgress reads the progress record. A missing file returns
// nil, nil; a corrupt one returns an error the caller may treat as absent.
func (s *Store) LoadBatchProgress() (*BatchProgress, error) {
	data, err := os.ReadFile(s.ProgressPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read batch progress: %w", err)
	}

	var progress BatchProgress
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, fmt.Errorf("failed to parse batch progress: %w", err)
	}
	return &progress, nil
}

// SaveBatchProgress stamps UpdatedAt and writes the record atomically.
func (s *Store) SaveBatchProgress(progress *BatchProgress) error {
	progress.UpdatedAt = s.now().UTC()
	if progress.StartedAt.IsZero() {
		progress.StartedAt = progress.UpdatedAt
	}

	data, err := json.MarshalIndent(progress, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal batch progress: %w", err)
	}
	if err := WriteFileAtomic(s.ProgressPath(), append(data, '\n'), defaultFilePerm); err != nil {
		return fmt.Errorf("failed to write batch progress: %w", err)
	}
	return nil
}

// DeleteBatchProgress removes the progress record if present.
func (s *Store) DeleteBatchProgress() error {
	if err := os.Remove(s.ProgressPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete batch progress: %w", err)
	}
	return nil
}
