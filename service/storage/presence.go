package storage

import (
	"context"

	"ChatBuddy/tools/errs"

	"github.com/redis/go-redis/v9"
)

// OnlineUsersHash is the well-known collection of currently-online users,
// keyed by userId with the display name as value.
const OnlineUsersHash = "onlineUsers"

// Presence is the usage contract the gateway needs from the shared store.
// Each operation is independently atomic; List reflects any Upsert that
// completed before it (single redis command against one server), but
// concurrent writers from other connections may interleave arbitrarily.
type Presence interface {
	Upsert(ctx context.Context, hash, userID, displayName string) error
	List(ctx context.Context, hash string) (map[string]string, error)
	Remove(ctx context.Context, hash, userID string) error
}

type redisPresence struct {
	rdb *redis.Client
}

// NewPresence wraps a redis client as a Presence registry over one hash per
// collection name.
func NewPresence(rdb *redis.Client) Presence {
	return &redisPresence{rdb: rdb}
}

func (p *redisPresence) Upsert(ctx context.Context, hash, userID, displayName string) error {
	if err := p.rdb.HSet(ctx, hash, userID, displayName).Err(); err != nil {
		return errs.WrapMsg(err, "presence upsert", "hash", hash, "user", userID)
	}
	return nil
}

func (p *redisPresence) List(ctx context.Context, hash string) (map[string]string, error) {
	out, err := p.rdb.HGetAll(ctx, hash).Result()
	if err != nil {
		return nil, errs.WrapMsg(err, "presence list", "hash", hash)
	}
	return out, nil
}

// Remove is idempotent: deleting an absent field is not an error for HDEL.
func (p *redisPresence) Remove(ctx context.Context, hash, userID string) error {
	if err := p.rdb.HDel(ctx, hash, userID).Err(); err != nil {
		return errs.WrapMsg(err, "presence remove", "hash", hash, "user", userID)
	}
	return nil
}
