package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/yourusername/secret-board/internal/apperr"
)

// MemoryStore はプロセス内のマップにユーザーを保存します。開発とテスト用です。
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]*User
	byUsername map[string]string
	now        func() time.Time
}

// NewMemoryStore は空の MemoryStore を作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]*User),
		byUsername: make(map[string]string),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create はユーザーを作成します。
func (s *MemoryStore) Create(ctx context.Context, username, credentialHash string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUsername[username]; exists {
		return nil, oops.With("username", username).Wrap(apperr.ErrDuplicateUsername)
	}

	now := s.now()
	user := &User{
		ID:             uuid.NewString(),
		Username:       username,
		CredentialHash: credentialHash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.byID[user.ID] = user
	s.byUsername[username] = user.ID
	return clone(user), nil
}

// FindByUsername は username でユーザーを検索します。
func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return clone(s.byID[id]), nil
}

// FindByID は ID でユーザーを検索します。
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return clone(user), nil
}

// UpdateSecret はシークレットを上書きします。
func (s *MemoryStore) UpdateSecret(ctx context.Context, id, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	user.Secret = &secret
	user.UpdatedAt = s.now()
	return nil
}

// ListWithSecret はシークレットを持つユーザーを作成順で返します。
func (s *MemoryStore) ListWithSecret(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*User, 0, len(s.byID))
	for _, user := range s.byID {
		if user.HasSecret() {
			result = append(result, clone(user))
		}
	}
	sortByCreation(result)
	return result, nil
}

func sortByCreation(list []*User) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
