package directory

import (
	"context"

	"github.com/xaenox/brawl-guard/internal/models"
)

// Authorize reports whether the user's effective role ranks at least minimum.
// A storage error denies access.
func (d *Directory) Authorize(ctx context.Context, userID int64, minimum models.Role) (bool, error) {
	role, err := d.Role(ctx, userID)
	if err != nil {
		return false, err
	}
	return role.Rank() >= minimum.Rank(), nil
}
