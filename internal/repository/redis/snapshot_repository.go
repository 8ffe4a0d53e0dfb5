package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const snapshotKeyPrefix = "critic:snapshot:"

// SnapshotRepository keeps document snapshots in Redis so every instance
// diffs against the same previous version.
type SnapshotRepository struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewSnapshotRepository(rdb *goredis.Client, ttl time.Duration) *SnapshotRepository {
	return &SnapshotRepository{rdb: rdb, ttl: ttl}
}

func snapshotKey(documentID string) string {
	return snapshotKeyPrefix + documentID
}

func (r *SnapshotRepository) Get(ctx context.Context, documentID string) (string, bool, error) {
	val, err := r.rdb.Get(ctx, snapshotKey(documentID)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get snapshot: %w", err)
	}
	return val, true, nil
}

func (r *SnapshotRepository) Set(ctx context.Context, documentID, content string) error {
	if err := r.rdb.Set(ctx, snapshotKey(documentID), content, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) Delete(ctx context.Context, documentID string) error {
	if err := r.rdb.Del(ctx, snapshotKey(documentID)).Err(); err != nil {
		return fmt.Errorf("redis delete snapshot: %w", err)
	}
	return nil
}
