package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// StateNotFoundError reports a load for an id with no persisted record.
type StateNotFoundError struct {
	ID string
}

func (e *StateNotFoundError) Error() string {
	return fmt.Sprintf("workflow state %q not found", e.ID)
}

// InvalidIdentifierError reports an externally supplied id that failed
// allow-list validation.
type InvalidIdentifierError struct {
	ID     string
	Reason string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier %q: %s", e.ID, e.Reason)
}

const maxIDLength = 128

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateID checks an externally supplied run id against the allow-list
// (alphanumeric, hyphen, underscore). Path separators, "..", NULs and
// shell metacharacters are all rejected here, before any I/O happens.
func ValidateID(id string) error {
	switch {
	case id == "":
		return &InvalidIdentifierError{ID: id, Reason: "empty"}
	case len(id) > maxIDLength:
		return &InvalidIdentifierError{ID: id, Reason: fmt.Sprintf("longer than %d characters", maxIDLength)}
	case strings.ContainsRune(id, 0):
		return &InvalidIdentifierError{ID: id, Reason: "contains NUL byte"}
	case strings.Contains(id, ".."):
		return &InvalidIdentifierError{ID: id, Reason: "contains .."}
	case !idPattern.MatchString(id):
		return &InvalidIdentifierError{ID: id, Reason: "must contain only letters, digits, hyphen, underscore"}
	}
	return nil
}

// NewRunID returns a timestamp-derived run id.
func NewRunID() string {
	return time.Now().UTC().Format("20060102_150405")
}

// Store persists workflow state on disk, one JSON file per run keyed by id.
type Store struct {
	baseDir string
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// DefaultStore returns a Store at ~/.gamesmith/runs, creating the directory
// if needed.
func DefaultStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".gamesmith", "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Store{baseDir: dir}, nil
}

// BaseDir returns the store's root directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

func (s *Store) statePath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

// Save serializes the full state to disk, bumping UpdatedAt. An existing
// record with the same id is overwritten.
func (s *Store) Save(st *State) (string, error) {
	if err := ValidateID(st.ID); err != nil {
		return "", err
	}
	st.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	path := s.statePath(st.ID)
	if err := writeJSON(path, st); err != nil {
		return "", fmt.Errorf("save state %s: %w", st.ID, err)
	}
	return path, nil
}

// Load reads the state for id. Returns StateNotFoundError if no record
// exists; an unknown id never creates one.
func (s *Store) Load(id string) (*State, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	var st State
	if err := readJSON(s.statePath(id), &st); err != nil {
		if os.IsNotExist(err) {
			return nil, &StateNotFoundError{ID: id}
		}
		return nil, err
	}
	if _, err := ParsePhase(string(st.Phase)); err != nil {
		return nil, fmt.Errorf("state %s: %w", id, err)
	}
	return &st, nil
}

// List returns all persisted states, most recently modified first.
func (s *Store) List() ([]State, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", s.baseDir, err)
	}

	var states []State
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		st, err := s.Load(id)
		if err != nil {
			continue // skip broken entries
		}
		states = append(states, *st)
	}

	sort.Slice(states, func(i, j int) bool {
		return states[i].UpdatedAt > states[j].UpdatedAt
	})
	return states, nil
}

// Latest returns the most recently modified state, or nil if the store
// is empty.
func (s *Store) Latest() (*State, error) {
	states, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(states) == 0 {
		return nil, nil
	}
	return &states[0], nil
}

// Delete removes the record for id. Returns true if a record existed,
// false (and no error) if it did not.
func (s *Store) Delete(id string) (bool, error) {
	if err := ValidateID(id); err != nil {
		return false, err
	}
	err := os.Remove(s.statePath(id))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete state %s: %w", id, err)
	}
	return true, nil
}

// CleanupOld retains the keep most recently modified records and deletes the
// rest, returning the number deleted.
func (s *Store) CleanupOld(keep int) (int, error) {
	states, err := s.List()
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	deleted := 0
	for i := keep; i < len(states); i++ {
		ok, err := s.Delete(states[i].ID)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
		}
	}
	return deleted, nil
}
