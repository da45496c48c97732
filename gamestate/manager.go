package gamestate

import (
	"container/heap"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	ecslog "pkg.world.dev/world-engine/blobstore/log"
	"pkg.world.dev/world-engine/blobstore/identity"
	"pkg.world.dev/world-engine/blobstore/mask"
	"pkg.world.dev/world-engine/blobstore/registry"
	"pkg.world.dev/world-engine/blobstore/types"
)

var _ identity.Owner = (*EntityManager)(nil)

type EntityManager struct {
	mu sync.RWMutex

	id       uuid.UUID
	name     string
	logger   *zerolog.Logger
	capacity int

	types *registry.Registry
	ids   *identity.Registry
	// numTypes is fixed once the type registry is frozen.
	numTypes int

	claimed []bool
	masks   []mask.Mask
	columns [][]types.DataBlob
	free    freeSlots
	live    int

	local   map[types.GlobalID]types.Slot
	reverse []types.GlobalID
}

// New creates an empty entity manager. The type registry is frozen on the first call; every manager sharing ids
// takes part in the same global identity space.
func New(typeRegistry *registry.Registry, ids *identity.Registry, opts ...Option) (*EntityManager, error) {
	if typeRegistry == nil {
		return nil, eris.New("type registry must not be nil")
	}
	if ids == nil {
		return nil, eris.New("identity registry must not be nil")
	}
	typeRegistry.Freeze()

	m := &EntityManager{
		id:       uuid.New(),
		types:    typeRegistry,
		ids:      ids,
		numTypes: typeRegistry.Count(),
		local:    map[types.GlobalID]types.Slot{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.name == "" {
		m.name = m.id.String()
	}
	if m.logger == nil {
		m.logger = &log.Logger
	}
	m.logger = ecslog.CreateManagerLogger(m.logger, m.name)

	m.claimed = make([]bool, 0, m.capacity)
	m.masks = make([]mask.Mask, 0, m.capacity)
	m.reverse = make([]types.GlobalID, 0, m.capacity)
	m.columns = make([][]types.DataBlob, m.numTypes)
	for i := range m.columns {
		m.columns[i] = make([]types.DataBlob, 0, m.capacity)
	}
	return m, nil
}

func (m *EntityManager) ID() uuid.UUID {
	return m.id
}

func (m *EntityManager) Name() string {
	return m.name
}

func (m *EntityManager) String() string {
	return m.name
}

// TypeRegistry returns the registry the manager's columns were built from.
func (m *EntityManager) TypeRegistry() *registry.Registry {
	return m.types
}

// IdentityRegistry returns the shared global identity registry.
func (m *EntityManager) IdentityRegistry() *identity.Registry {
	return m.ids
}

// Logger returns the manager's logger.
func (m *EntityManager) Logger() *zerolog.Logger {
	return m.logger
}

// BlankMask returns an all-false mask with one bit per registered data blob type.
func (m *EntityManager) BlankMask() mask.Mask {
	return mask.Blank(m.numTypes)
}

// MaskOf returns a mask with the bits of the given types set.
func (m *EntityManager) MaskOf(ids ...types.TypeID) mask.Mask {
	return mask.Of(m.numTypes, ids...)
}

// Len returns the number of live entities.
func (m *EntityManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.live
}

// Cap returns the number of allocated slots, live or free.
func (m *EntityManager) Cap() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.claimed)
}

// IsValid reports whether slot holds a live entity in this manager.
func (m *EntityManager) IsValid(slot types.Slot) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isValidLocked(slot)
}

func (m *EntityManager) isValidLocked(slot types.Slot) bool {
	return slot >= 0 && int(slot) < len(m.claimed) && m.claimed[slot]
}

// CreateEntity creates an entity with a freshly minted global identifier and the given data blobs.
func (m *EntityManager) CreateEntity(blobs ...types.DataBlob) (types.Slot, error) {
	slot, _, err := m.CreateEntityWithIdentity(nil, blobs...)
	return slot, err
}

// CreateEntityWithIdentity creates an entity carrying id, or a freshly minted identifier when id is nil. It is used
// to rebuild entities whose identifier must be preserved, for example when restoring a snapshot.
func (m *EntityManager) CreateEntityWithIdentity(
	id *types.GlobalID, blobs ...types.DataBlob,
) (types.Slot, types.GlobalID, error) {
	typeIDs, err := m.resolveTypes(blobs)
	if err != nil {
		return types.NoSlot, types.NilGlobalID, err
	}

	slot := types.NoSlot
	var gid types.GlobalID
	err = m.ids.Update(func(tx *identity.Txn) error {
		if id == nil {
			gid = tx.Mint()
		} else {
			gid = *id
		}
		if err := tx.CanClaim(gid); err != nil {
			return err
		}

		m.mu.Lock()
		if err := m.checkInitialLocked(blobs, typeIDs); err != nil {
			m.mu.Unlock()
			return err
		}
		slot = m.createLocked(gid, blobs, typeIDs)
		m.mu.Unlock()

		return tx.Claim(gid, m)
	})
	if err != nil {
		return types.NoSlot, types.NilGlobalID, err
	}
	ecslog.Entity(m.logger, zerolog.DebugLevel, "entity created", slot, gid, blobs)
	return slot, gid, nil
}

// resolveTypes validates every blob before anything is mutated.
func (m *EntityManager) resolveTypes(blobs []types.DataBlob) ([]types.TypeID, error) {
	typeIDs := make([]types.TypeID, len(blobs))
	for i, blob := range blobs {
		if isNil(blob) {
			return nil, eris.Wrapf(types.ErrNilDataBlob, "initial data blob %d", i)
		}
		typeID, err := m.types.IndexOf(blob)
		if err != nil {
			return nil, err
		}
		typeIDs[i] = typeID
	}
	return typeIDs, nil
}

// createLocked claims the lowest free slot, or appends a new one, and attaches blobs. m.mu must be held.
func (m *EntityManager) createLocked(gid types.GlobalID, blobs []types.DataBlob, typeIDs []types.TypeID) types.Slot {
	var slot types.Slot
	if m.free.Len() > 0 {
		slot = heap.Pop(&m.free).(types.Slot) //nolint:forcetypeassert // only slots are pushed
		// RemoveEntity already cleared the row; make sure nothing leaked back in.
		for t := range m.columns {
			m.columns[t][slot] = nil
		}
		m.masks[slot].Reset()
		m.claimed[slot] = true
	} else {
		slot = types.Slot(len(m.claimed))
		m.claimed = append(m.claimed, true)
		m.masks = append(m.masks, mask.Blank(m.numTypes))
		m.reverse = append(m.reverse, types.NilGlobalID)
		for t := range m.columns {
			m.columns[t] = append(m.columns[t], nil)
		}
	}

	for i, blob := range blobs {
		m.setLocked(slot, typeIDs[i], blob)
	}

	m.local[gid] = slot
	m.reverse[slot] = gid
	m.live++
	return slot
}

// RemoveEntity removes the entity at slot. Its global identifier is retired and will never resolve again.
func (m *EntityManager) RemoveEntity(slot types.Slot) error {
	var gid types.GlobalID
	var removed []types.DataBlob
	err := m.ids.Update(func(tx *identity.Txn) error {
		m.mu.Lock()
		defer m.mu.Unlock()

		var err error
		gid, err = m.identityLocked(slot)
		if err != nil {
			return err
		}
		if err := tx.Retire(gid, m); err != nil {
			return err
		}
		removed = m.removeLocked(slot, true)
		return nil
	})
	if err != nil {
		if eris.Is(err, types.ErrNoIdentity) || eris.Is(err, types.ErrIdentityCorrupt) {
			m.logger.Error().Err(err).Int("slot", int(slot)).Msg("failed to remove entity")
		}
		return err
	}
	ecslog.Entity(m.logger, zerolog.DebugLevel, "entity removed", slot, gid, removed)
	return nil
}

// identityLocked returns the identifier of a claimed slot. m.mu must be held.
func (m *EntityManager) identityLocked(slot types.Slot) (types.GlobalID, error) {
	if !m.isValidLocked(slot) {
		return types.NilGlobalID, eris.Wrapf(types.ErrInvalidSlot, "slot %d", slot)
	}
	gid := m.reverse[slot]
	if gid.IsNil() {
		return types.NilGlobalID, eris.Wrapf(types.ErrNoIdentity, "slot %d", slot)
	}
	return gid, nil
}

// removeLocked clears the row of slot, frees the slot and drops its local identity. It returns the data blobs the
// entity held in type order. When detach is set the blobs' back-references are cleared. m.mu must be held.
func (m *EntityManager) removeLocked(slot types.Slot, detach bool) []types.DataBlob {
	blobs := m.dataBlobsLocked(slot)
	for t := range m.columns {
		m.columns[t][slot] = nil
	}
	if detach {
		for _, blob := range blobs {
			if owned, ok := blob.(types.OwnedDataBlob); ok {
				owned.SetOwner(types.NoSlot)
			}
		}
	}
	m.masks[slot].Reset()
	m.claimed[slot] = false

	delete(m.local, m.reverse[slot])
	m.reverse[slot] = types.NilGlobalID

	heap.Push(&m.free, slot)
	m.live--
	return blobs
}

// Clear removes every entity of the manager. All of their identifiers are retired.
func (m *EntityManager) Clear() error {
	removed := 0
	err := m.ids.Update(func(tx *identity.Txn) error {
		m.mu.Lock()
		defer m.mu.Unlock()

		for s := range m.claimed {
			slot := types.Slot(s)
			if !m.claimed[slot] {
				continue
			}
			gid, err := m.identityLocked(slot)
			if err != nil {
				return err
			}
			if err := tx.Retire(gid, m); err != nil {
				return err
			}
		}
		// Every retirement succeeded, so the rows can go.
		for s := range m.claimed {
			if m.claimed[s] {
				m.removeLocked(types.Slot(s), true)
				removed++
			}
		}
		return nil
	})
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to clear entity manager")
		return err
	}
	m.logger.Debug().Int("removed", removed).Msg("entity manager cleared")
	return nil
}
