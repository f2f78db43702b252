package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/brawl-guard/internal/models"
	"go.uber.org/zap"
)

// testStorageContract exercises the behavior every backend must share.
func testStorageContract(t *testing.T, store Storage) {
	ctx := context.Background()

	t.Run("unknown user", func(t *testing.T) {
		_, err := store.GetUser(ctx, 1001)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("ensure creates default record", func(t *testing.T) {
		require.NoError(t, store.EnsureUser(ctx, 1002))
		require.NoError(t, store.EnsureUser(ctx, 1002))

		u, err := store.GetUser(ctx, 1002)
		require.NoError(t, err)
		assert.Equal(t, &models.User{ID: 1002, Role: models.RoleUser}, u)
	})

	t.Run("ensure keeps existing values", func(t *testing.T) {
		require.NoError(t, store.SetNickname(ctx, 1003, "Colt"))
		require.NoError(t, store.EnsureUser(ctx, 1003))

		u, err := store.GetUser(ctx, 1003)
		require.NoError(t, err)
		assert.Equal(t, "Colt", u.Nickname)
	})

	t.Run("set role and nickname", func(t *testing.T) {
		require.NoError(t, store.SetRole(ctx, 1004, models.RoleJunior))
		require.NoError(t, store.SetNickname(ctx, 1004, "Spike"))
		require.NoError(t, store.SetRole(ctx, 1004, models.RoleAdmin))

		u, err := store.GetUser(ctx, 1004)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, u.Role)
		assert.Equal(t, "Spike", u.Nickname)
		assert.Equal(t, 0, u.Warnings)
	})

	t.Run("increment warnings is monotonic", func(t *testing.T) {
		for i := 1; i <= 5; i++ {
			n, err := store.IncrementWarnings(ctx, 1005)
			require.NoError(t, err)
			assert.Equal(t, i, n)
		}
		u, err := store.GetUser(ctx, 1005)
		require.NoError(t, err)
		assert.Equal(t, 5, u.Warnings)
		assert.Equal(t, models.RoleUser, u.Role)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		const workers = 25
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.IncrementWarnings(ctx, 1006)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		u, err := store.GetUser(ctx, 1006)
		require.NoError(t, err)
		assert.Equal(t, workers, u.Warnings)
	})
}

func TestMemoryStorage(t *testing.T) {
	testStorageContract(t, NewMemoryStorage())
}

func TestSQLiteStorage(t *testing.T) {
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "data", "bot.db"), zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	testStorageContract(t, store)
}

func TestSQLiteStorageSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bot.db")

	store, err := NewSQLiteStorage(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.SetNickname(ctx, 42, "Mortis"))
	_, err = store.IncrementWarnings(ctx, 42)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewSQLiteStorage(path, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	u, err := store.GetUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Mortis", u.Nickname)
	assert.Equal(t, 1, u.Warnings)
}

func TestPostgresStorage(t *testing.T) {
	t.Skip("live test, need postgres running locally")

	store, err := NewPostgresStorage(DatabaseConfig{
		Host:    "localhost",
		Port:    5432,
		User:    "postgres",
		DBName:  "brawl_guard_test",
		SSLMode: "disable",
	}, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	testStorageContract(t, store)
}

func TestRedisStorage(t *testing.T) {
	t.Skip("live test, need redis running locally")

	store, err := NewRedisStorage("redis://localhost:6379/0", "test:", zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	testStorageContract(t, store)
}

func TestDollarPlaceholders(t *testing.T) {
	assert.Equal(t,
		"UPDATE users SET role = $1 WHERE user_id = $2",
		dollarPlaceholders("UPDATE users SET role = ? WHERE user_id = ?"))
	assert.Equal(t, "SELECT 1", dollarPlaceholders("SELECT 1"))
}
