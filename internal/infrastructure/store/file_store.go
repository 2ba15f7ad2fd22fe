package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/servicehub/session-gateway/internal/core/domain"
	"github.com/servicehub/session-gateway/internal/core/ports"
)

// Fixed key names inside a session file.
const (
	keyToken = "token"
	keyUser  = "user"
)

var safeClientID = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

// FileFactory keeps one JSON file per browser client under dir.
type FileFactory struct {
	dir string
	log zerolog.Logger
}

func NewFileFactory(dir string, log zerolog.Logger) (*FileFactory, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("session store directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("mkdir session store dir: %w", err)
	}
	return &FileFactory{dir: dir, log: log.With().Str("component", "file_store").Logger()}, nil
}

func (f *FileFactory) For(clientID string) ports.SessionStore {
	return &FileStore{
		path: filepath.Join(f.dir, fileName(clientID)),
		log:  f.log.With().Str("client_id", clientID).Logger(),
	}
}

// fileName maps a client id to a file name that cannot escape the store dir.
func fileName(clientID string) string {
	if safeClientID.MatchString(clientID) {
		return clientID + ".json"
	}
	sum := sha256.Sum256([]byte(clientID))
	return hex.EncodeToString(sum[:]) + ".json"
}

// FileStore is the persisted session of one client, stored as
// {"token": "...", "user": "<json>"}.
type FileStore struct {
	path string
	log  zerolog.Logger

	mu sync.Mutex
}

func (s *FileStore) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kv, err := s.loadLocked()
	if err != nil {
		return "", err
	}
	return kv[keyToken], nil
}

func (s *FileStore) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kv, err := s.loadLocked()
	if err != nil {
		return err
	}
	kv[keyToken] = token
	return s.persistLocked(kv)
}

func (s *FileStore) User(context.Context) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kv, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	raw, ok := kv[keyUser]
	if !ok || raw == "" {
		return nil, nil
	}
	var u domain.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.log.Warn().Err(err).Msg("stored user record is corrupt, treating as absent")
		return nil, nil
	}
	return &u, nil
}

func (s *FileStore) SetUser(_ context.Context, user *domain.User) error {
	b, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kv, err := s.loadLocked()
	if err != nil {
		return err
	}
	kv[keyUser] = string(b)
	return s.persistLocked(kv)
}

func (s *FileStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (s *FileStore) IsAuthenticated(ctx context.Context) bool {
	token, err := s.Token(ctx)
	return err == nil && token != ""
}

func (s *FileStore) loadLocked() (map[string]string, error) {
	kv := make(map[string]string, 2)
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return kv, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if len(b) == 0 {
		return kv, nil
	}
	if err := json.Unmarshal(b, &kv); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	return kv, nil
}

// persistLocked writes through a temp file so readers never see a torn file.
func (s *FileStore) persistLocked(kv map[string]string) error {
	b, err := json.Marshal(kv)
	if err != nil {
		return fmt.Errorf("encode session file: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
