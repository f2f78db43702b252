package storage

import (
	"context"
	"sync"

	"github.com/xaenox/brawl-guard/internal/models"
)

// MemoryStorage keeps records in process memory. Nothing survives a restart,
// so it is meant for tests and local runs.
type MemoryStorage struct {
	mu    sync.Mutex
	users map[int64]*models.User
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users: make(map[int64]*models.User),
	}
}

// ensure must be called with mu held.
func (s *MemoryStorage) ensure(userID int64) *models.User {
	user, exists := s.users[userID]
	if !exists {
		user = models.NewUser(userID)
		s.users[userID] = user
	}
	return user
}

func (s *MemoryStorage) EnsureUser(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensure(userID)
	return nil
}

func (s *MemoryStorage) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[userID]
	if !exists {
		return nil, ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (s *MemoryStorage) SetRole(ctx context.Context, userID int64, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensure(userID).Role = role
	return nil
}

func (s *MemoryStorage) SetNickname(ctx context.Context, userID int64, nickname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensure(userID).Nickname = nickname
	return nil
}

func (s *MemoryStorage) IncrementWarnings(ctx context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := s.ensure(userID)
	user.Warnings++
	return user.Warnings, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
