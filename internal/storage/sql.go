package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/xaenox/brawl-guard/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations/*/*.sql
var migrations embed.FS

// Queries are written with "?" placeholders and rebound per dialect.
const (
	queryEnsureUser = `
		INSERT INTO users (user_id) VALUES (?)
		ON CONFLICT (user_id) DO NOTHING`

	queryGetUser = `
		SELECT role, nickname, warnings
		FROM users
		WHERE user_id = ?`

	querySetRole = `
		INSERT INTO users (user_id, role) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET role = excluded.role`

	querySetNickname = `
		INSERT INTO users (user_id, nickname) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET nickname = excluded.nickname`

	// A single upsert keeps the read-modify-write atomic in the database.
	queryIncrementWarnings = `
		INSERT INTO users (user_id, warnings) VALUES (?, 1)
		ON CONFLICT (user_id) DO UPDATE SET warnings = users.warnings + 1
		RETURNING warnings`
)

// sqlStorage implements Storage on top of database/sql for both SQLite and PostgreSQL.
type sqlStorage struct {
	db      *sql.DB
	dialect string
	rebind  func(string) string
	logger  *zap.Logger
}

func newSQLStorage(db *sql.DB, dialect string, rebind func(string) string, logger *zap.Logger) (*sqlStorage, error) {
	s := &sqlStorage{
		db:      db,
		dialect: dialect,
		rebind:  rebind,
		logger:  logger,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}
	return s, nil
}

// migrate applies every embedded migration for the dialect that is not yet recorded.
func (s *sqlStorage) migrate() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	dir := path.Join("migrations", s.dialect)
	entries, err := migrations.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	for i, entry := range entries {
		version := i + 1
		var count int
		if err := s.db.QueryRow(s.rebind("SELECT COUNT(*) FROM schema_migrations WHERE version = ?"), version).Scan(&count); err != nil {
			return fmt.Errorf("check migration %d: %w", version, err)
		}
		if count > 0 {
			continue
		}

		body, err := migrations.ReadFile(path.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		s.logger.Info("Running migration",
			zap.Int("version", version),
			zap.String("name", entry.Name()),
			zap.String("dialect", s.dialect))
		if _, err := s.db.Exec(string(body)); err != nil {
			return fmt.Errorf("migration %d (%s): %w", version, entry.Name(), err)
		}
		if _, err := s.db.Exec(s.rebind("INSERT INTO schema_migrations (version) VALUES (?)"), version); err != nil {
			return fmt.Errorf("record migration %d: %w", version, err)
		}
	}

	return nil
}

func (s *sqlStorage) EnsureUser(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(queryEnsureUser), userID); err != nil {
		return fmt.Errorf("error ensuring user %d: %w", userID, err)
	}
	return nil
}

func (s *sqlStorage) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var (
		role     string
		nickname sql.NullString
		warnings int
	)
	err := s.db.QueryRowContext(ctx, s.rebind(queryGetUser), userID).Scan(&role, &nickname, &warnings)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying user %d: %w", userID, err)
	}

	return &models.User{
		ID:       userID,
		Role:     models.ParseRole(role),
		Nickname: nickname.String,
		Warnings: warnings,
	}, nil
}

func (s *sqlStorage) SetRole(ctx context.Context, userID int64, role models.Role) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(querySetRole), userID, string(role)); err != nil {
		return fmt.Errorf("error setting role for user %d: %w", userID, err)
	}
	return nil
}

func (s *sqlStorage) SetNickname(ctx context.Context, userID int64, nickname string) error {
	nick := sql.NullString{String: nickname, Valid: nickname != ""}
	if _, err := s.db.ExecContext(ctx, s.rebind(querySetNickname), userID, nick); err != nil {
		return fmt.Errorf("error setting nickname for user %d: %w", userID, err)
	}
	return nil
}

func (s *sqlStorage) IncrementWarnings(ctx context.Context, userID int64) (int, error) {
	var warnings int
	if err := s.db.QueryRowContext(ctx, s.rebind(queryIncrementWarnings), userID).Scan(&warnings); err != nil {
		return 0, fmt.Errorf("error incrementing warnings for user %d: %w", userID, err)
	}
	return warnings, nil
}

func (s *sqlStorage) Close() error {
	return s.db.Close()
}

// identity leaves "?" placeholders as they are.
func identity(query string) string {
	return query
}

// dollarPlaceholders rewrites "?" placeholders to PostgreSQL's $1, $2, ...
func dollarPlaceholders(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
