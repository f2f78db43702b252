// Package directory is the user registry the moderation pipeline reads and writes:
// roles, nicknames and warning counters, with the configured owner resolved on top.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaenox/brawl-guard/internal/models"
	"github.com/xaenox/brawl-guard/internal/storage"
)

// ResolveEffectiveRole applies the owner override to a stored role.
// Only the configured owner id resolves to RoleOwner.
func ResolveEffectiveRole(userID, ownerID int64, stored models.Role) models.Role {
	if ownerID != 0 && userID == ownerID {
		return models.RoleOwner
	}
	if stored == models.RoleOwner {
		return models.RoleUser
	}
	return stored
}

type Directory struct {
	store   storage.Storage
	ownerID int64
}

func New(store storage.Storage, ownerID int64) *Directory {
	return &Directory{
		store:   store,
		ownerID: ownerID,
	}
}

// IsOwner reports whether userID is the configured owner identity.
func (d *Directory) IsOwner(userID int64) bool {
	return d.ownerID != 0 && userID == d.ownerID
}

func (d *Directory) Ensure(ctx context.Context, userID int64) error {
	return d.store.EnsureUser(ctx, userID)
}

// Lookup returns the user's record with the effective role filled in.
// Users that were never stored get the default record; nothing is written.
func (d *Directory) Lookup(ctx context.Context, userID int64) (*models.User, error) {
	user, err := d.store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrUserNotFound) {
		user = models.NewUser(userID)
	} else if err != nil {
		return nil, err
	}
	user.Role = ResolveEffectiveRole(userID, d.ownerID, user.Role)
	return user, nil
}

// Role returns the effective role. The owner check never touches storage.
func (d *Directory) Role(ctx context.Context, userID int64) (models.Role, error) {
	if d.IsOwner(userID) {
		return models.RoleOwner, nil
	}
	user, err := d.Lookup(ctx, userID)
	if err != nil {
		return models.RoleUser, err
	}
	return user.Role, nil
}

// SetRole stores a role grant. The owner role is derived, never stored.
func (d *Directory) SetRole(ctx context.Context, userID int64, role models.Role) error {
	if role == models.RoleOwner {
		return fmt.Errorf("owner role cannot be granted")
	}
	return d.store.SetRole(ctx, userID, role)
}

// SetNickname stores an already truncated nickname.
func (d *Directory) SetNickname(ctx context.Context, userID int64, nickname string) error {
	return d.store.SetNickname(ctx, userID, nickname)
}

// Nickname returns the stored nickname and whether one is set.
func (d *Directory) Nickname(ctx context.Context, userID int64) (string, bool, error) {
	user, err := d.store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrUserNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return user.Nickname, user.HasNickname(), nil
}

// IncrementWarning bumps the user's warning counter and returns the new value.
func (d *Directory) IncrementWarning(ctx context.Context, userID int64) (int, error) {
	return d.store.IncrementWarnings(ctx, userID)
}
