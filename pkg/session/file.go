package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore is a file-based session store for CLI applications.
// Sessions are stored as JSON files in a config directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
	now     func() time.Time
}

// NewFileStore creates a new file-based session store.
// If baseDir is empty, defaults to ~/.config/fractal/sessions/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".config", "fractal", "sessions")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{baseDir: baseDir, now: time.Now}, nil
}

func (s *FileStore) sessionPath(sessionID string) string {
	return filepath.Join(s.baseDir, sessionID+".json")
}

func (s *FileStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.sessionPath(sessionID)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}

	if sess.expiredAt(s.now()) {
		os.Remove(path)
		return nil, nil
	}
	return &sess, nil
}

func (s *FileStore) Set(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	path := s.sessionPath(sess.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.sessionPath(sessionID)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (s *FileStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("read session dir: %w", err)
	}

	now := s.now()
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.baseDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			continue
		}
		if sess.expiredAt(now) {
			os.Remove(path)
		}
	}
	return nil
}

// Path returns the base directory for session files.
func (s *FileStore) Path() string {
	return s.baseDir
}

var _ Store = (*FileStore)(nil)

// =============================================================================
// Calendar token wrapper
// =============================================================================

const calendarSessionID = "calendar"

// TokenStore keeps the single calendar session used by the CLI.
type TokenStore struct {
	store *FileStore
}

// NewTokenStore opens the token store under baseDir (see [NewFileStore]).
func NewTokenStore(baseDir string) (*TokenStore, error) {
	store, err := NewFileStore(baseDir)
	if err != nil {
		return nil, err
	}
	return &TokenStore{store: store}, nil
}

// Token returns the stored access token or [ErrNotLoggedIn].
func (c *TokenStore) Token(ctx context.Context) (string, error) {
	sess, err := c.Session(ctx)
	if err != nil {
		return "", err
	}
	return sess.AccessToken, nil
}

// Session returns the stored session or [ErrNotLoggedIn].
func (c *TokenStore) Session(ctx context.Context) (*Session, error) {
	sess, err := c.store.Get(ctx, calendarSessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.AccessToken == "" {
		return nil, ErrNotLoggedIn
	}
	return sess, nil
}

// Save stores token for ttl (see [New]).
func (c *TokenStore) Save(ctx context.Context, token string, ttl time.Duration) (*Session, error) {
	if token == "" {
		return nil, fmt.Errorf("empty token")
	}
	sess, err := New(token, ttl)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	sess.ID = calendarSessionID
	if err := c.store.Set(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Delete removes the stored token.
func (c *TokenStore) Delete(ctx context.Context) error {
	return c.store.Delete(ctx, calendarSessionID)
}

// Prune removes expired session files left in the store's directory.
func (c *TokenStore) Prune(ctx context.Context) error {
	return c.store.Cleanup(ctx)
}

// Path returns the session file path.
func (c *TokenStore) Path() string {
	return c.store.sessionPath(calendarSessionID)
}
