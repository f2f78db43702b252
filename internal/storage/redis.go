package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/xaenox/brawl-guard/internal/models"
	"go.uber.org/zap"
)

const (
	fieldRole     = "role"
	fieldNickname = "nickname"
	fieldWarnings = "warnings"
)

// RedisStorage keeps each user as a hash under "<prefix>user:<id>".
// Durability across restarts depends on the server's persistence settings (AOF/RDB).
type RedisStorage struct {
	Client *redis.Client
	prefix string
	logger *zap.Logger
}

func NewRedisStorage(redisURL, prefix string, logger *zap.Logger) (*RedisStorage, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	if _, err := rdb.Ping(context.TODO()).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("error connecting to redis: %w", err)
	}
	return &RedisStorage{
		Client: rdb,
		prefix: prefix,
		logger: logger,
	}, nil
}

func (s *RedisStorage) key(userID int64) string {
	return fmt.Sprintf("%suser:%d", s.prefix, userID)
}

// defaults queues the default fields so a partially written hash is never observed.
func (s *RedisStorage) defaults(ctx context.Context, pipe redis.Pipeliner, key string) {
	pipe.HSetNX(ctx, key, fieldRole, string(models.RoleUser))
	pipe.HSetNX(ctx, key, fieldWarnings, 0)
}

func (s *RedisStorage) EnsureUser(ctx context.Context, userID int64) error {
	key := s.key(userID)
	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.defaults(ctx, pipe, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("error ensuring user %d: %w", userID, err)
	}
	return nil
}

func (s *RedisStorage) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	fields, err := s.Client.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("error querying user %d: %w", userID, err)
	}
	if len(fields) == 0 {
		return nil, ErrUserNotFound
	}

	warnings := 0
	if raw, ok := fields[fieldWarnings]; ok {
		warnings, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("error parsing warnings for user %d: %w", userID, err)
		}
	}

	return &models.User{
		ID:       userID,
		Role:     models.ParseRole(fields[fieldRole]),
		Nickname: fields[fieldNickname],
		Warnings: warnings,
	}, nil
}

func (s *RedisStorage) SetRole(ctx context.Context, userID int64, role models.Role) error {
	key := s.key(userID)
	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldRole, string(role))
		pipe.HSetNX(ctx, key, fieldWarnings, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("error setting role for user %d: %w", userID, err)
	}
	return nil
}

func (s *RedisStorage) SetNickname(ctx context.Context, userID int64, nickname string) error {
	key := s.key(userID)
	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.defaults(ctx, pipe, key)
		if nickname == "" {
			pipe.HDel(ctx, key, fieldNickname)
		} else {
			pipe.HSet(ctx, key, fieldNickname, nickname)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error setting nickname for user %d: %w", userID, err)
	}
	return nil
}

// IncrementWarnings relies on HINCRBY, which is atomic on the server.
func (s *RedisStorage) IncrementWarnings(ctx context.Context, userID int64) (int, error) {
	key := s.key(userID)
	var incr *redis.IntCmd
	_, err := s.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, fieldRole, string(models.RoleUser))
		incr = pipe.HIncrBy(ctx, key, fieldWarnings, 1)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("error incrementing warnings for user %d: %w", userID, err)
	}
	return int(incr.Val()), nil
}

func (s *RedisStorage) Close() error {
	return s.Client.Close()
}
