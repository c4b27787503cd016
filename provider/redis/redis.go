// Package redis implements the regioncache provider on redis/go-redis/v9.
// Full capability set: MGET and pipelined SET for batches, SETNX for atomic
// adds, SCAN for key walks, native per-key TTL.
package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	pr "github.com/unkn0wn-root/regioncache/provider"
)

var ErrNilClient = errors.New("redis provider: nil client")

// delBatch caps how many keys one DEL carries during DeleteMatching.
const delBatch = 512

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
	scanCount   int64
}

var _ pr.Provider = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool  // set true only if this provider exclusively owns the client
	ScanCount   int64 // COUNT hint per SCAN page; 0 => 128
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	if cfg.ScanCount <= 0 {
		cfg.ScanCount = 128
	}
	return &Redis{rdb: cfg.Client, closeClient: cfg.CloseClient, scanCount: cfg.ScanCount}, nil
}

func (p *Redis) Capabilities() pr.Capabilities {
	return pr.Capabilities{Batch: true, Scan: true, AtomicAdd: true, NativeTTL: true}
}

func (p *Redis) Fetch(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (p *Redis) FetchMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	vals, err := p.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(keys))
	for i, v := range vals {
		if v == nil {
			continue // miss
		}
		if s, ok := v.(string); ok {
			out[keys[i]] = []byte(s)
		}
	}
	return out, nil
}

func (p *Redis) Store(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 0 // non-positive TTL = "no expiry" per provider contract
	}
	if err := p.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Redis) StoreMany(ctx context.Context, items map[string][]byte, ttl time.Duration) (map[string]bool, error) {
	if ttl <= 0 {
		ttl = 0
	}
	pipe := p.rdb.Pipeline()
	cmds := make(map[string]*goredis.StatusCmd, len(items))
	for key, value := range items {
		cmds[key] = pipe.Set(ctx, key, value, ttl)
	}
	_, execErr := pipe.Exec(ctx)

	// Per-key acceptance comes from the individual commands, not from the
	// pipeline's aggregate error.
	out := make(map[string]bool, len(cmds))
	for key, cmd := range cmds {
		out[key] = cmd.Err() == nil
	}
	if execErr != nil && execErr != goredis.Nil {
		return out, execErr
	}
	return out, nil
}

func (p *Redis) Delete(ctx context.Context, key string) (bool, error) {
	n, err := p.rdb.Del(ctx, key).Result()
	return n > 0, err
}

func (p *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := p.rdb.Exists(ctx, key).Result()
	return n > 0, err
}

func (p *Redis) AddIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 0
	}
	return p.rdb.SetNX(ctx, key, value, ttl).Result()
}

// Scan walks MATCH <prefix>* pages. The prefix is re-checked client side
// because MATCH is a glob: keys containing glob metacharacters must not
// widen the walk.
func (p *Redis) Scan(ctx context.Context, prefix string, fn func(key string) bool) error {
	iter := p.rdb.Scan(ctx, 0, prefix+"*", p.scanCount).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if !fn(k) {
			return nil
		}
	}
	return iter.Err()
}

func (p *Redis) DeleteMatching(ctx context.Context, prefix string) (int, error) {
	removed := 0
	batch := make([]string, 0, delBatch)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := p.rdb.Del(ctx, batch...).Result()
		removed += int(n)
		batch = batch[:0]
		return err
	}

	var flushErr error
	err := p.Scan(ctx, prefix, func(key string) bool {
		batch = append(batch, key)
		if len(batch) == delBatch {
			if flushErr = flush(); flushErr != nil {
				return false
			}
		}
		return true
	})
	if flushErr != nil {
		return removed, flushErr
	}
	if err != nil {
		return removed, err
	}
	if err := flush(); err != nil {
		return removed, err
	}
	return removed, nil
}

// Close releases the underlying redis client only when this provider owns
// it. Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
