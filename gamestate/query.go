package gamestate

import (
	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/blobstore/mask"
	"pkg.world.dev/world-engine/blobstore/types"
)

// EntitiesWith returns every live slot holding a data blob of the given type, in ascending order.
func (m *EntityManager) EntitiesWith(typeID types.TypeID) ([]types.Slot, error) {
	if err := m.checkType(typeID); err != nil {
		return nil, err
	}
	return m.EntitiesWithMask(m.MaskOf(typeID))
}

// EntitiesWithMask returns every live slot whose mask holds all bits of query, in ascending order.
func (m *EntityManager) EntitiesWithMask(query mask.Mask) ([]types.Slot, error) {
	if query.Len() != m.numTypes {
		return nil, eris.Wrapf(types.ErrMaskLengthMismatch, "got %d bits, %d types registered",
			query.Len(), m.numTypes)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	slots := make([]types.Slot, 0)
	for s, claimed := range m.claimed {
		if claimed && m.masks[s].Matches(query) {
			slots = append(slots, types.Slot(s))
		}
	}
	return slots, nil
}

// FirstEntityWith returns the lowest live slot holding a data blob of the given type, or types.NoSlot.
func (m *EntityManager) FirstEntityWith(typeID types.TypeID) types.Slot {
	if m.checkType(typeID) != nil {
		return types.NoSlot
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for s, blob := range m.columns[typeID] {
		if blob != nil && m.claimed[s] {
			return types.Slot(s)
		}
	}
	return types.NoSlot
}

// Entity is one live entity as enumerated by Entities.
type Entity struct {
	Slot      types.Slot
	ID        types.GlobalID
	DataBlobs []types.DataBlob
}

// Entities enumerates every live entity with its identifier and data blobs, in ascending slot order. It is the
// hook persistence collaborators use to serialize a manager.
func (m *EntityManager) Entities() []Entity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entity, 0, m.live)
	for s, claimed := range m.claimed {
		if !claimed {
			continue
		}
		slot := types.Slot(s)
		out = append(out, Entity{
			Slot:      slot,
			ID:        m.reverse[slot],
			DataBlobs: m.dataBlobsLocked(slot),
		})
	}
	return out
}
