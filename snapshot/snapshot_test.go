package snapshot_test

import (
	"testing"

	"github.com/goccy/go-json"

	"pkg.world.dev/world-engine/blobstore/assert"
	"pkg.world.dev/world-engine/blobstore/blobs"
	"pkg.world.dev/world-engine/blobstore/datablob"
	"pkg.world.dev/world-engine/blobstore/gamestate"
	"pkg.world.dev/world-engine/blobstore/identity"
	"pkg.world.dev/world-engine/blobstore/registry"
	"pkg.world.dev/world-engine/blobstore/snapshot"
	"pkg.world.dev/world-engine/blobstore/types"
)

func newManager(t *testing.T, ids *identity.Registry, name string) *gamestate.EntityManager {
	t.Helper()
	reg := registry.New()
	assert.NilError(t, reg.Register(blobs.All()...))
	m, err := gamestate.New(reg, ids, gamestate.WithName(name))
	assert.NilError(t, err)
	return m
}

func populate(t *testing.T, m *gamestate.EntityManager) {
	t.Helper()
	_, err := m.CreateEntity(&blobs.Name{Default: "Sol"}, &blobs.Position{}, &blobs.MassVolume{Mass: 2e30})
	assert.NilError(t, err)
	_, err = m.CreateEntity(&blobs.Position{X: 1}, &blobs.Orbit{SemiMajorAxis: 1, Period: 365})
	assert.NilError(t, err)
	_, err = m.CreateEntity(&blobs.Ship{Class: "scout", Fuel: 2})
	assert.NilError(t, err)
	assert.NilError(t, m.RemoveEntity(1))
}

func TestRoundTripPreservesIdentifiersAndDataBlobs(t *testing.T) {
	src := newManager(t, identity.New(), "A")
	populate(t, src)

	snap, err := snapshot.Take(src)
	assert.NilError(t, err)
	assert.Equal(t, "A", snap.Manager)
	assert.Len(t, snap.Entities, 2)
	assert.Len(t, snap.Schemas, 4)

	bz, err := snapshot.Marshal(snap)
	assert.NilError(t, err)
	decoded, err := snapshot.Unmarshal(bz)
	assert.NilError(t, err)

	dst := newManager(t, identity.New(), "B")
	assert.NilError(t, snapshot.Restore(decoded, dst))

	want := src.Entities()
	got := dst.Entities()
	assert.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.DeepEqual(t, want[i].DataBlobs, got[i].DataBlobs, assert.IgnoreOwner)
		slot, ok := dst.FindLocal(want[i].ID)
		assert.True(t, ok)
		assert.Equal(t, got[i].Slot, slot)
	}
	// Removed slots are compacted away on restore.
	assert.Equal(t, 2, dst.Cap())
}

func TestRestoreRejectsUnknownTypes(t *testing.T) {
	src := newManager(t, identity.New(), "A")
	populate(t, src)
	snap, err := snapshot.Take(src)
	assert.NilError(t, err)

	narrow := registry.New()
	assert.NilError(t, narrow.Register(datablob.MustNewMetadata[*blobs.Position]()))
	dst, err := gamestate.New(narrow, identity.New())
	assert.NilError(t, err)

	err = snapshot.Restore(snap, dst)
	assert.ErrorIs(t, err, types.ErrUnregisteredType)
	assert.Equal(t, 0, dst.Len())
}

func TestRestoreRejectsSchemaDrift(t *testing.T) {
	src := newManager(t, identity.New(), "A")
	populate(t, src)
	snap, err := snapshot.Take(src)
	assert.NilError(t, err)

	snap.Schemas["Position"] = json.RawMessage(`{"type":"object"}`)
	dst := newManager(t, identity.New(), "B")
	err = snapshot.Restore(snap, dst)
	assert.ErrorIs(t, err, datablob.ErrSchemaMismatch)
	assert.Equal(t, 0, dst.Len())
}

func TestRestoreRejectsBadPayloadBeforeCreatingAnything(t *testing.T) {
	src := newManager(t, identity.New(), "A")
	populate(t, src)
	snap, err := snapshot.Take(src)
	assert.NilError(t, err)

	last := snap.Entities[len(snap.Entities)-1]
	last.DataBlobs["Ship"] = json.RawMessage(`{"fuel":"lots"}`)
	dst := newManager(t, identity.New(), "B")
	err = snapshot.Restore(snap, dst)
	assert.Assert(t, err != nil)
	assert.Contains(t, err.Error(), "failed to decode Ship")
	assert.Equal(t, 0, dst.Len())
}

func TestRestoreRefusesLiveIdentifiers(t *testing.T) {
	ids := identity.New()
	src := newManager(t, ids, "A")
	populate(t, src)
	snap, err := snapshot.Take(src)
	assert.NilError(t, err)

	// Same identity space: every identifier is still live in A.
	dst := newManager(t, ids, "B")
	err = snapshot.Restore(snap, dst)
	assert.ErrorIs(t, err, types.ErrIdentityConflict)
	assert.Equal(t, 0, dst.Len())
}

func TestRestoreRefusesRetiredIdentifiersWithoutSideEffects(t *testing.T) {
	src := newManager(t, identity.New(), "A")
	populate(t, src)
	snap, err := snapshot.Take(src)
	assert.NilError(t, err)

	// Retire only the last identifier in the target registry so every earlier entity could be created.
	ids := identity.New()
	other := newManager(t, ids, "C")
	last := snap.Entities[len(snap.Entities)-1].ID
	slot, _, err := other.CreateEntityWithIdentity(&last)
	assert.NilError(t, err)
	assert.NilError(t, other.RemoveEntity(slot))

	dst := newManager(t, ids, "B")
	err = snapshot.Restore(snap, dst)
	assert.ErrorIs(t, err, types.ErrIdentityRetired)
	assert.Equal(t, 0, dst.Len())
	assert.Equal(t, 0, ids.Len())
}

func TestRestoreRefusesRepeatedIdentifiers(t *testing.T) {
	src := newManager(t, identity.New(), "A")
	populate(t, src)
	snap, err := snapshot.Take(src)
	assert.NilError(t, err)

	snap.Entities = append(snap.Entities, snap.Entities[0])
	dst := newManager(t, identity.New(), "B")
	err = snapshot.Restore(snap, dst)
	assert.ErrorIs(t, err, types.ErrIdentityConflict)
	assert.Equal(t, 0, dst.Len())
}

func TestRestoreChecksVersion(t *testing.T) {
	dst := newManager(t, identity.New(), "B")
	assert.ErrorContains(t, snapshot.Restore(&snapshot.Snapshot{Version: 99}, dst), "unsupported snapshot version")
	assert.ErrorContains(t, snapshot.Restore(nil, dst), "must not be nil")
}
