package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"pkg.world.dev/world-engine/blobstore/blobs"
	"pkg.world.dev/world-engine/blobstore/config"
	"pkg.world.dev/world-engine/blobstore/gamestate"
	"pkg.world.dev/world-engine/blobstore/identity"
	ecslog "pkg.world.dev/world-engine/blobstore/log"
	"pkg.world.dev/world-engine/blobstore/registry"
	"pkg.world.dev/world-engine/blobstore/snapshot"
	"pkg.world.dev/world-engine/blobstore/statsd"
	"pkg.world.dev/world-engine/blobstore/storage/redis"
	"pkg.world.dev/world-engine/blobstore/types"
)

// shipEvery makes every n-th seeded body a ship instead of a planet.
const shipEvery = 4

type universe struct {
	cfg    config.Config
	logger *zerolog.Logger

	types      *registry.Registry
	ids        *identity.Registry
	partitions []*gamestate.EntityManager
	rnds       []*rand.Rand

	transfers atomic.Int64
	destroyed atomic.Int64
}

type report struct {
	Entities  map[string]int
	Transfers int64
	Destroyed int64
	// Snapshots is the number of partitions saved to and restored from redis.
	Snapshots int
}

func (r report) String() string {
	names := make([]string, 0, len(r.Entities))
	for name := range r.Entities {
		names = append(names, name)
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "%s: %d entities\n", name, r.Entities[name])
	}
	fmt.Fprintf(&sb, "transfers: %d, destroyed: %d, snapshots: %d", r.Transfers, r.Destroyed, r.Snapshots)
	return sb.String()
}

func newTypeRegistry() (*registry.Registry, error) {
	reg := registry.New()
	if err := reg.Register(blobs.All()...); err != nil {
		return nil, err
	}
	return reg, nil
}

func newPartitions(
	n int, typeRegistry *registry.Registry, ids *identity.Registry, logger *zerolog.Logger, capacity int,
) ([]*gamestate.EntityManager, error) {
	partitions := make([]*gamestate.EntityManager, 0, n)
	for i := 0; i < n; i++ {
		m, err := gamestate.New(typeRegistry, ids,
			gamestate.WithName(fmt.Sprintf("partition-%d", i)),
			gamestate.WithLogger(ecslog.CreatePartitionLogger(logger, i)),
			gamestate.WithInitialCapacity(capacity),
		)
		if err != nil {
			return nil, err
		}
		partitions = append(partitions, m)
	}
	return partitions, nil
}

func newUniverse(cfg config.Config, logger *zerolog.Logger) (*universe, error) {
	typeRegistry, err := newTypeRegistry()
	if err != nil {
		return nil, err
	}
	ids := identity.New()
	partitions, err := newPartitions(cfg.Partitions, typeRegistry, ids, logger, cfg.EntitiesPerPartition)
	if err != nil {
		return nil, err
	}
	ecslog.Registry(logger, typeRegistry, zerolog.InfoLevel)

	u := &universe{
		cfg:        cfg,
		logger:     logger,
		types:      typeRegistry,
		ids:        ids,
		partitions: partitions,
		rnds:       make([]*rand.Rand, cfg.Partitions),
	}
	for i := range u.rnds {
		u.rnds[i] = rand.New(rand.NewSource(cfg.Seed + int64(i))) //nolint:gosec // simulation only
	}
	return u, nil
}

func (u *universe) run(ctx context.Context) (report, error) {
	if u.cfg.StatsdAddress != "" {
		if err := statsd.Init(u.cfg.StatsdAddress, u.cfg.StatsdTags); err != nil {
			return report{}, err
		}
		defer func() {
			if err := statsd.Close(); err != nil {
				u.logger.Warn().Err(err).Msg("failed to close statsd client")
			}
		}()
	}

	if err := u.seed(); err != nil {
		return report{}, err
	}
	for tick := 1; tick <= u.cfg.Ticks; tick++ {
		if err := u.tick(ctx, tick); err != nil {
			return report{}, eris.Wrapf(err, "tick %d", tick)
		}
	}

	rep := report{
		Entities:  map[string]int{},
		Transfers: u.transfers.Load(),
		Destroyed: u.destroyed.Load(),
	}
	for _, m := range u.partitions {
		rep.Entities[m.Name()] = m.Len()
	}

	if u.cfg.RedisAddress != "" {
		n, err := u.roundTrip(ctx)
		if err != nil {
			return rep, err
		}
		rep.Snapshots = n
	}
	u.logger.Info().Int64("transfers", rep.Transfers).Int64("destroyed", rep.Destroyed).Msg("simulation finished")
	return rep, nil
}

func (u *universe) seed() error {
	for i, m := range u.partitions {
		rnd := u.rnds[i]
		for n := 0; n < u.cfg.EntitiesPerPartition; n++ {
			name := &blobs.Name{Default: fmt.Sprintf("%s-body-%d", m.Name(), n)}
			var err error
			if n%shipEvery == 0 {
				_, err = m.CreateEntity(
					name,
					&blobs.Position{X: rnd.Float64() * 100, Y: rnd.Float64() * 100},
					&blobs.Ship{Class: "courier", Fuel: float64(1 + rnd.Intn(3))},
				)
			} else {
				a := 1 + rnd.Float64()*50
				_, err = m.CreateEntity(
					name,
					&blobs.Position{X: a},
					&blobs.MassVolume{Mass: rnd.Float64() * 1e24, Radius: rnd.Float64() * 1e4},
					&blobs.Orbit{SemiMajorAxis: a, Period: 10 + rnd.Float64()*100},
				)
			}
			if err != nil {
				return err
			}
		}
		statsd.EmitEntityCount(m.Name(), m.Len())
	}
	return nil
}

// tick steps every partition concurrently. Each partition only moves entities out of itself, into the next one.
func (u *universe) tick(ctx context.Context, tick int) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := range u.partitions {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return eris.Wrap(err, "")
			}
			return u.step(i, tick)
		})
	}
	return g.Wait()
}

func (u *universe) step(i, tick int) error {
	m := u.partitions[i]
	start := time.Now()
	defer statsd.EmitTickStat(start, m.Name())

	if err := advanceOrbits(m); err != nil {
		return err
	}
	if u.cfg.TransferEvery > 0 && tick%u.cfg.TransferEvery == 0 && len(u.partitions) > 1 {
		if err := u.launchShip(i); err != nil {
			return err
		}
	}
	statsd.EmitEntityCount(m.Name(), m.Len())
	return nil
}

func advanceOrbits(m *gamestate.EntityManager) error {
	rows, err := gamestate.EntitiesWithTwo[*blobs.Orbit, *blobs.Position](m)
	if err != nil {
		return err
	}
	for _, row := range rows {
		orbit, pos := row.A, row.B
		orbit.MeanAnomaly = math.Mod(orbit.MeanAnomaly+2*math.Pi/orbit.Period, 2*math.Pi)
		pos.X = orbit.SemiMajorAxis * math.Cos(orbit.MeanAnomaly)
		pos.Y = orbit.SemiMajorAxis * math.Sin(orbit.MeanAnomaly)
	}
	return nil
}

// launchShip burns fuel on the first ship of partition i and hands it to the next partition. A ship without fuel
// is destroyed instead and its identifier retired.
func (u *universe) launchShip(i int) error {
	m := u.partitions[i]
	slot := gamestate.FirstEntityWithType[*blobs.Ship](m)
	if slot == types.NoSlot {
		return nil
	}
	ship, err := gamestate.GetDataBlob[*blobs.Ship](m, slot)
	if err != nil {
		return err
	}
	if ship.Fuel < 1 {
		if err := m.RemoveEntity(slot); err != nil {
			return err
		}
		u.destroyed.Add(1)
		return nil
	}
	ship.Fuel--

	dst := u.partitions[(i+1)%len(u.partitions)]
	if _, err := m.TransferEntity(slot, dst); err != nil {
		return err
	}
	u.transfers.Add(1)
	statsd.EmitTransfer(m.Name(), dst.Name())
	return nil
}

// roundTrip saves every partition to redis, restores them into a fresh identity space and checks nothing was lost.
func (u *universe) roundTrip(ctx context.Context) (int, error) {
	// The reader is a separate client so restoring does not hit the writer's in-memory cache.
	store, reader := u.newStorage(), u.newStorage()
	defer u.closeStorage(store)
	defer u.closeStorage(reader)
	if err := store.Ping(ctx); err != nil {
		return 0, err
	}

	for _, m := range u.partitions {
		snap, err := snapshot.Take(m)
		if err != nil {
			return 0, err
		}
		if err := store.Save(ctx, snap); err != nil {
			return 0, err
		}
	}

	names, err := reader.Partitions(ctx)
	if err != nil {
		return 0, err
	}
	restoredIDs := identity.New()
	for _, name := range names {
		snap, err := reader.Load(ctx, name)
		if err != nil {
			return 0, err
		}
		m, err := gamestate.New(u.types, restoredIDs,
			gamestate.WithName(name),
			gamestate.WithLogger(u.logger),
			gamestate.WithInitialCapacity(len(snap.Entities)),
		)
		if err != nil {
			return 0, err
		}
		if err := snapshot.Restore(snap, m); err != nil {
			return 0, err
		}
	}

	if restoredIDs.Len() != u.ids.Len() {
		return 0, eris.Errorf("restored %d identifiers, expected %d", restoredIDs.Len(), u.ids.Len())
	}
	u.logger.Info().Int("partitions", len(names)).Int("entities", restoredIDs.Len()).Msg("snapshot round trip verified")
	return len(names), nil
}

func (u *universe) newStorage() *redis.Storage {
	return redis.NewRedisStorage(redis.Options{
		Addr:     u.cfg.RedisAddress,
		Password: u.cfg.RedisPassword,
	}, u.cfg.RedisNamespace)
}

func (u *universe) closeStorage(s *redis.Storage) {
	if err := s.Close(); err != nil {
		u.logger.Warn().Err(err).Msg("failed to close redis client")
	}
}
