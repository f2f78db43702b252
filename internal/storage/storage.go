package storage

import (
	"context"
	"errors"

	"github.com/xaenox/brawl-guard/internal/models"
)

// ErrUserNotFound is returned by GetUser when no record was ever stored for the id.
var ErrUserNotFound = errors.New("user not found")

// Storage persists user records. Every mutating call is committed before it returns,
// and IncrementWarnings is atomic per user.
type Storage interface {
	EnsureUser(ctx context.Context, userID int64) error
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	SetRole(ctx context.Context, userID int64, role models.Role) error
	SetNickname(ctx context.Context, userID int64, nickname string) error
	IncrementWarnings(ctx context.Context, userID int64) (int, error)
	Close() error
}
