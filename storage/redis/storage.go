// Package redis persists entity manager snapshots in redis. It is a collaborator of the store, not part of it: the
// store never calls it.
package redis

import (
	"context"
	"errors"
	"sort"

	"github.com/coocood/freecache"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/blobstore/snapshot"
)

var ErrSnapshotNotFound = eris.New("snapshot not found")

// SnapshotCacheSize is the number of bytes of encoded snapshots kept in memory.
const SnapshotCacheSize = 8 * 1024 * 1024

type Options = redis.Options

// Storage assumes it is the only writer of its namespace: Load serves from an in-memory copy of the last snapshot
// saved or loaded through it.
type Storage struct {
	client    redis.Cmdable
	namespace string
	cache     *freecache.Cache
}

// NewRedisStorage dials redis with the given options.
func NewRedisStorage(options Options, namespace string) *Storage {
	return New(redis.NewClient(&options), namespace)
}

func New(client redis.Cmdable, namespace string) *Storage {
	return &Storage{
		client:    client,
		namespace: namespace,
		cache:     freecache.NewCache(SnapshotCacheSize),
	}
}

// Save stores snap under its manager name. The snapshot and the partition index are written in one MULTI/EXEC.
func (s *Storage) Save(ctx context.Context, snap *snapshot.Snapshot) error {
	bz, err := snapshot.Marshal(snap)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, snapshotKey(s.namespace, snap.Manager), bz, 0)
	pipe.SAdd(ctx, partitionsKey(s.namespace), snap.Manager)
	if _, err := pipe.Exec(ctx); err != nil {
		return eris.Wrapf(err, "failed to save snapshot of %s", snap.Manager)
	}
	s.remember(snap.Manager, bz)
	return nil
}

func (s *Storage) remember(partition string, bz []byte) {
	// Snapshots larger than a cache segment are simply not cached.
	_ = s.cache.Set([]byte(partition), bz, 0)
}

func (s *Storage) Load(ctx context.Context, partition string) (*snapshot.Snapshot, error) {
	if bz, err := s.cache.Get([]byte(partition)); err == nil {
		return snapshot.Unmarshal(bz)
	}
	bz, err := s.client.Get(ctx, snapshotKey(s.namespace, partition)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, eris.Wrap(ErrSnapshotNotFound, partition)
	}
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	snap, err := snapshot.Unmarshal(bz)
	if err != nil {
		return nil, err
	}
	s.remember(partition, bz)
	return snap, nil
}

// Partitions returns the names of every stored partition, sorted.
func (s *Storage) Partitions(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, partitionsKey(s.namespace)).Result()
	if err != nil {
		return nil, eris.Wrap(err, "")
	}
	sort.Strings(names)
	return names, nil
}

func (s *Storage) Delete(ctx context.Context, partition string) error {
	s.cache.Del([]byte(partition))
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, snapshotKey(s.namespace, partition))
	pipe.SRem(ctx, partitionsKey(s.namespace), partition)
	if _, err := pipe.Exec(ctx); err != nil {
		return eris.Wrapf(err, "failed to delete snapshot of %s", partition)
	}
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return eris.Wrap(s.client.Ping(ctx).Err(), "")
}

func (s *Storage) Close() error {
	if c, ok := s.client.(interface{ Close() error }); ok {
		return eris.Wrap(c.Close(), "")
	}
	return nil
}
