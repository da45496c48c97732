package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"pkg.world.dev/world-engine/blobstore/assert"
	"pkg.world.dev/world-engine/blobstore/blobs"
	"pkg.world.dev/world-engine/blobstore/config"
	"pkg.world.dev/world-engine/blobstore/gamestate"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Partitions = 3
	cfg.EntitiesPerPartition = 8
	cfg.Ticks = 12
	cfg.TransferEvery = 1
	return cfg
}

func TestSimulationKeepsEveryIdentityResolvable(t *testing.T) {
	logger := zerolog.Nop()
	u, err := newUniverse(testConfig(), &logger)
	assert.NilError(t, err)

	rep, err := u.run(context.Background())
	assert.NilError(t, err)
	assert.True(t, rep.Transfers > 0)

	total := 0
	for _, m := range u.partitions {
		total += rep.Entities[m.Name()]
		for _, e := range m.Entities() {
			owner, slot, err := m.FindByIdentifier(e.ID)
			assert.NilError(t, err)
			assert.Same(t, m, owner)
			assert.Equal(t, e.Slot, slot)
		}
	}
	assert.Equal(t, 3*8-int(rep.Destroyed), total)
	assert.Equal(t, total, u.ids.Len())
}

func TestOrbitsAdvance(t *testing.T) {
	logger := zerolog.Nop()
	cfg := testConfig()
	cfg.Partitions = 1
	u, err := newUniverse(cfg, &logger)
	assert.NilError(t, err)
	assert.NilError(t, u.seed())

	m := u.partitions[0]
	slot := gamestate.FirstEntityWithType[*blobs.Orbit](m)
	orbit, err := gamestate.GetDataBlob[*blobs.Orbit](m, slot)
	assert.NilError(t, err)
	before := orbit.MeanAnomaly

	assert.NilError(t, advanceOrbits(m))
	assert.True(t, orbit.MeanAnomaly != before)

	pos, err := gamestate.GetDataBlob[*blobs.Position](m, slot)
	assert.NilError(t, err)
	assert.InDelta(t, orbit.SemiMajorAxis*orbit.SemiMajorAxis, pos.X*pos.X+pos.Y*pos.Y, 1e-6)
}

func TestSimulationRoundTripsThroughRedis(t *testing.T) {
	s := miniredis.RunT(t)
	logger := zerolog.Nop()
	cfg := testConfig()
	cfg.RedisAddress = s.Addr()

	u, err := newUniverse(cfg, &logger)
	assert.NilError(t, err)
	rep, err := u.run(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, cfg.Partitions, rep.Snapshots)
	assert.True(t, s.Exists("BLOBSTORE:universe:PARTITIONS"))
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"version"})
	assert.NilError(t, cmd.Execute())
	assert.Equal(t, "universe dev\n", out.String())
}

func TestSimulateCommand(t *testing.T) {
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"simulate", "--partitions=2", "--entities=4", "--ticks=3", "--log-level=error"})
	assert.NilError(t, cmd.Execute())
	assert.Contains(t, out.String(), "partition-0:")
	assert.Contains(t, out.String(), "partition-1:")
}

func TestSimulateCommandRejectsBadConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"simulate", "--partitions=0"})
	assert.ErrorContains(t, cmd.Execute(), "partitions must be at least 1")
}
