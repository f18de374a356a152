package session

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const fileName = "session.json"

// ErrNotFound is returned by Load when no session is persisted
var ErrNotFound = errors.New("session not found")

// Store manages session persistence at <config dir>/session.json
type Store struct {
	dir string
}

// NewStore creates a new session store rooted at dir
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create session directory")
	}

	return &Store{dir: dir}, nil
}

// Save persists a session to disk
func (s *Store) Save(session *FocusSession) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal session")
	}

	// Write next to the target and rename so a crash never leaves a torn file
	tmp := s.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write session file")
	}
	if err := os.Rename(tmp, s.Path()); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, "failed to replace session file")
	}

	return nil
}

// Load reads the persisted session
func (s *Store) Load() (*FocusSession, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to read session file")
	}

	var session FocusSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal session")
	}

	return &session, nil
}

// Exists reports whether a session file is present
func (s *Store) Exists() bool {
	_, err := os.Stat(s.Path())
	return err == nil
}

// Delete removes the session file
func (s *Store) Delete() error {
	if err := os.Remove(s.Path()); err != nil {
		if os.IsNotExist(err) {
			return nil // Already deleted
		}
		return errors.Wrap(err, "failed to delete session file")
	}

	return nil
}

// Path returns the session file path
func (s *Store) Path() string {
	return filepath.Join(s.dir, fileName)
}
