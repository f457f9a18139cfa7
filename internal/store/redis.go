package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seegalab/seega-server/internal/seega"
)

type redisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore connects to the given redis:// URL and returns a Store that
// keeps each session as JSON under seega:game:<id> with a sliding TTL.
func NewRedisStore(redisURL string, ttl time.Duration) (Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for redis store")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisStore{rdb: rdb, ttl: ttl}, nil
}

func gameKey(id string) string { return "seega:game:" + strings.TrimSpace(id) }

func (s *redisStore) Save(ctx context.Context, g *seega.Game) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, gameKey(g.ID), raw, s.ttl).Err()
}

func (s *redisStore) Get(ctx context.Context, gameID string) (*seega.Game, error) {
	raw, err := s.rdb.Get(ctx, gameKey(gameID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var g seega.Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *redisStore) Delete(ctx context.Context, gameID string) error {
	return s.rdb.Del(ctx, gameKey(gameID)).Err()
}

func (s *redisStore) Count(ctx context.Context) (int, error) {
	var total int
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, gameKey("*"), 100).Result()
		if err != nil {
			return 0, err
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}

// Close releases the underlying client. Not part of Store; callers that own
// the redis store cast to io.Closer at shutdown.
func (s *redisStore) Close() error { return s.rdb.Close() }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
