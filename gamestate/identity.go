package gamestate

import (
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	ecslog "pkg.world.dev/world-engine/blobstore/log"
	"pkg.world.dev/world-engine/blobstore/identity"
	"pkg.world.dev/world-engine/blobstore/types"
)

// LocalSlot implements identity.Owner.
func (m *EntityManager) LocalSlot(id types.GlobalID) (types.Slot, bool) {
	return m.FindLocal(id)
}

// FindLocal returns the slot id occupies in this manager. It never errors.
func (m *EntityManager) FindLocal(id types.GlobalID) (types.Slot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slot, ok := m.local[id]
	if !ok {
		return types.NoSlot, false
	}
	return slot, true
}

// IdentifierOf returns the global identifier of the entity at slot.
func (m *EntityManager) IdentifierOf(slot types.Slot) (types.GlobalID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.isValidLocked(slot) {
		return types.NilGlobalID, false
	}
	gid := m.reverse[slot]
	return gid, !gid.IsNil()
}

// FindByIdentifier resolves id in any manager sharing this manager's identity registry.
func (m *EntityManager) FindByIdentifier(id types.GlobalID) (*EntityManager, types.Slot, error) {
	return Resolve(m.ids, id)
}

// Resolve finds the manager and slot of id through the shared identity registry.
func Resolve(ids *identity.Registry, id types.GlobalID) (*EntityManager, types.Slot, error) {
	owner, slot, err := ids.Resolve(id)
	if err != nil {
		return nil, types.NoSlot, err
	}
	mgr, ok := owner.(*EntityManager)
	if !ok {
		return nil, types.NoSlot, eris.Wrapf(types.ErrIdentityCorrupt, "%s is owned by %T", id, owner)
	}
	return mgr, slot, nil
}

// TransferEntity moves the entity at slot, with all of its data blobs, into dst. The entity keeps its global
// identifier; its slot in dst is returned. No reader of the identity registry can observe the entity in both
// managers or in neither.
func (m *EntityManager) TransferEntity(slot types.Slot, dst *EntityManager) (types.Slot, error) {
	if dst == nil {
		return types.NoSlot, eris.New("destination manager must not be nil")
	}
	if dst.ids != m.ids {
		return types.NoSlot, eris.Wrapf(types.ErrRegistryMismatch, "%s -> %s", m.name, dst.name)
	}

	newSlot := types.NoSlot
	var gid types.GlobalID
	err := m.ids.Update(func(tx *identity.Txn) error {
		// Only transfers hold two manager locks, and only under the registry write lock, so the order in which the
		// two are taken cannot deadlock.
		m.mu.Lock()
		defer m.mu.Unlock()
		if dst != m {
			dst.mu.Lock()
			defer dst.mu.Unlock()
		}

		var err error
		gid, err = m.identityLocked(slot)
		if err != nil {
			return err
		}
		blobs := m.dataBlobsLocked(slot)
		typeIDs, err := dst.resolveTypes(blobs)
		if err != nil {
			return err
		}
		if dst != m {
			if err := dst.checkInitialLocked(blobs, typeIDs); err != nil {
				return err
			}
		}
		if err := tx.Move(gid, m, dst); err != nil {
			return err
		}

		m.removeLocked(slot, false)
		newSlot = dst.createLocked(gid, blobs, typeIDs)
		return nil
	})
	if err != nil {
		if eris.Is(err, types.ErrNoIdentity) || eris.Is(err, types.ErrIdentityCorrupt) {
			m.logger.Error().Err(err).Int("slot", int(slot)).Str("to", dst.name).Msg("failed to transfer entity")
		}
		return types.NoSlot, err
	}
	ecslog.Transfer(m.logger, zerolog.DebugLevel, gid, m.name, slot, dst.name, newSlot)
	return newSlot, nil
}
