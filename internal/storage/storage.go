// Package storage persists session metadata records as JSON files.
//
// Conversation history is deliberately never written here; only the session
// records needed to list and resume sessions across restarts.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aibridge-dev/aibridge/pkg/types"
)

var (
	ErrNotFound = errors.New("not found")
)

// Store is a file-based store for session metadata.
type Store struct {
	basePath string
	mu       sync.Mutex
	locks    map[string]*FileLock
}

// New creates a new Store rooted at basePath.
func New(basePath string) *Store {
	return &Store{
		basePath: basePath,
		locks:    make(map[string]*FileLock),
	}
}

// PutSession stores a session record under the given composite key.
func (s *Store) PutSession(ctx context.Context, key string, sess *types.Session) error {
	filePath := s.sessionFile(key)

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	lock := s.getLock(filePath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}

	// Write to temp file first, then rename (atomic operation)
	tmpPath := filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

// GetSession retrieves a session record by its composite key.
func (s *Store) GetSession(ctx context.Context, key string) (*types.Session, error) {
	data, err := os.ReadFile(s.sessionFile(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var sess types.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal: %w", err)
	}
	return &sess, nil
}

// DeleteSession removes a session record. Deleting a record that does not
// exist is not an error.
func (s *Store) DeleteSession(ctx context.Context, key string) error {
	filePath := s.sessionFile(key)

	lock := s.getLock(filePath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer lock.Unlock()

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// ListSessions returns all stored session records.
func (s *Store) ListSessions(ctx context.Context) ([]*types.Session, error) {
	dirPath := filepath.Join(s.basePath, "sessions")

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var sessions []*types.Session
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dirPath, name))
		if err != nil {
			continue // Skip files that can't be read
		}

		var sess types.Session
		if err := json.Unmarshal(data, &sess); err != nil {
			continue
		}
		sessions = append(sessions, &sess)
	}

	return sessions, nil
}

// sessionFile maps a composite key to its file path. Keys may contain
// characters that are unsafe in filenames (the tool/caller separator), so
// they are sanitized first.
func (s *Store) sessionFile(key string) string {
	return filepath.Join(s.basePath, "sessions", sanitizeKey(key)+".json")
}

// sanitizeKey replaces filename-unsafe characters with '-'.
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '_' || r == '-':
			return r
		default:
			return '-'
		}
	}, key)
}

// getLock returns a file lock for a path.
func (s *Store) getLock(filePath string) *FileLock {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[filePath]
	if !ok {
		lock = NewFileLock(filePath)
		s.locks[filePath] = lock
	}
	return lock
}
