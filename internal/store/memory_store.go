package store

import (
	"errors"
	"strings"
	"sync"
	"time"

	"studio/server/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// MemoryStore keeps accounts and refresh tokens. Studio content lives in
// per-session ContentStores.
type MemoryStore struct {
	mu sync.RWMutex

	users       map[string]model.User
	userByEmail map[string]string

	refreshTokens map[string]model.RefreshToken
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         map[string]model.User{},
		userByEmail:   map[string]string{},
		refreshTokens: map[string]model.RefreshToken{},
	}
}

func (s *MemoryStore) CreateUser(user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, ok := s.userByEmail[key]; ok {
		return ErrConflict
	}
	s.users[user.ID] = user
	s.userByEmail[key] = user.ID
	return nil
}

func (s *MemoryStore) GetUserByEmail(email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.userByEmail[strings.ToLower(email)]
	if !ok {
		return model.User{}, ErrNotFound
	}
	user, ok := s.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return user, nil
}

func (s *MemoryStore) GetUserByID(id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return user, nil
}

func (s *MemoryStore) SaveRefreshToken(tok model.RefreshToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens[tok.ID] = tok
}

func (s *MemoryStore) GetRefreshToken(id string) (model.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tok, ok := s.refreshTokens[id]
	if !ok {
		return model.RefreshToken{}, ErrNotFound
	}
	return tok, nil
}

func (s *MemoryStore) RevokeRefreshToken(id string, revokedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.refreshTokens[id]
	if !ok {
		return ErrNotFound
	}
	if tok.RevokedAt != nil {
		return nil
	}
	tok.RevokedAt = &revokedAt
	s.refreshTokens[id] = tok
	return nil
}
