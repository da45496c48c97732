package gamestate

import (
	"reflect"

	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/blobstore/mask"
	"pkg.world.dev/world-engine/blobstore/types"
)

func isNil(blob types.DataBlob) bool {
	if blob == nil {
		return true
	}
	v := reflect.ValueOf(blob)
	switch v.Kind() { //nolint:exhaustive // only nillable kinds matter
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

func (m *EntityManager) checkType(typeID types.TypeID) error {
	if typeID < 0 || int(typeID) >= m.numTypes {
		return eris.Wrapf(types.ErrUnregisteredType, "type id %d", typeID)
	}
	return nil
}

// DataBlob returns the data blob of the given type attached to slot.
func (m *EntityManager) DataBlob(slot types.Slot, typeID types.TypeID) (types.DataBlob, error) {
	if err := m.checkType(typeID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.isValidLocked(slot) {
		return nil, eris.Wrapf(types.ErrInvalidSlot, "slot %d", slot)
	}
	blob := m.columns[typeID][slot]
	if blob == nil {
		return nil, eris.Wrapf(types.ErrDataBlobNotFound, "type id %d on slot %d", typeID, slot)
	}
	return blob, nil
}

// HasDataBlob reports whether slot holds a data blob of the given type. It never errors.
func (m *EntityManager) HasDataBlob(slot types.Slot, typeID types.TypeID) bool {
	if m.checkType(typeID) != nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isValidLocked(slot) && m.masks[slot].Get(typeID)
}

// SetDataBlob attaches blob to slot, replacing any data blob of the same type.
func (m *EntityManager) SetDataBlob(slot types.Slot, blob types.DataBlob) error {
	if isNil(blob) {
		return eris.Wrap(types.ErrNilDataBlob, "")
	}
	typeID, err := m.types.IndexOf(blob)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.isValidLocked(slot) {
		return eris.Wrapf(types.ErrInvalidSlot, "slot %d", slot)
	}
	if err := m.checkAttachableLocked(slot, typeID, blob); err != nil {
		return err
	}
	m.setLocked(slot, typeID, blob)
	return nil
}

// checkAttachableLocked rejects blob when the same instance already sits in another live slot of this manager.
// m.mu must be held.
func (m *EntityManager) checkAttachableLocked(slot types.Slot, typeID types.TypeID, blob types.DataBlob) error {
	owned, ok := blob.(types.OwnedDataBlob)
	if !ok || reflect.ValueOf(blob).Kind() != reflect.Pointer {
		return nil
	}
	owner := owned.Owner()
	if owner == types.NoSlot || owner == slot || !m.isValidLocked(owner) {
		return nil
	}
	if m.columns[typeID][owner] == blob {
		return eris.Wrapf(types.ErrDataBlobAttached, "type id %d is held by slot %d", typeID, owner)
	}
	return nil
}

// checkInitialLocked runs checkAttachableLocked over the data blobs of an entity about to be created.
func (m *EntityManager) checkInitialLocked(blobs []types.DataBlob, typeIDs []types.TypeID) error {
	for i, blob := range blobs {
		if err := m.checkAttachableLocked(types.NoSlot, typeIDs[i], blob); err != nil {
			return err
		}
	}
	return nil
}

// setLocked writes the column entry, the mask bit and the back-reference together. m.mu must be held.
func (m *EntityManager) setLocked(slot types.Slot, typeID types.TypeID, blob types.DataBlob) {
	if prev, ok := m.columns[typeID][slot].(types.OwnedDataBlob); ok {
		prev.SetOwner(types.NoSlot)
	}
	if owned, ok := blob.(types.OwnedDataBlob); ok {
		owned.SetOwner(slot)
	}
	m.columns[typeID][slot] = blob
	m.masks[slot].Set(typeID, true)
}

// RemoveDataBlob detaches the data blob of the given type from slot. Removing a type the entity does not hold is
// not an error.
func (m *EntityManager) RemoveDataBlob(slot types.Slot, typeID types.TypeID) error {
	if err := m.checkType(typeID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.isValidLocked(slot) {
		return eris.Wrapf(types.ErrInvalidSlot, "slot %d", slot)
	}
	if owned, ok := m.columns[typeID][slot].(types.OwnedDataBlob); ok {
		owned.SetOwner(types.NoSlot)
	}
	m.columns[typeID][slot] = nil
	m.masks[slot].Set(typeID, false)
	return nil
}

// AllDataBlobs returns every data blob attached to slot, ordered by type index.
func (m *EntityManager) AllDataBlobs(slot types.Slot) ([]types.DataBlob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.isValidLocked(slot) {
		return nil, eris.Wrapf(types.ErrInvalidSlot, "slot %d", slot)
	}
	return m.dataBlobsLocked(slot), nil
}

func (m *EntityManager) dataBlobsLocked(slot types.Slot) []types.DataBlob {
	entityMask := m.masks[slot]
	blobs := make([]types.DataBlob, 0, entityMask.Count())
	for _, typeID := range entityMask.Indices() {
		blobs = append(blobs, m.columns[typeID][slot])
	}
	return blobs
}

// Mask returns a copy of the capability mask of slot.
func (m *EntityManager) Mask(slot types.Slot) (mask.Mask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.isValidLocked(slot) {
		return mask.Mask{}, eris.Wrapf(types.ErrInvalidSlot, "slot %d", slot)
	}
	return m.masks[slot].Clone(), nil
}

// DataBlobTypes returns the metadata of every type slot holds, ordered by type index.
func (m *EntityManager) DataBlobTypes(slot types.Slot) ([]types.DataBlobMetadata, error) {
	entityMask, err := m.Mask(slot)
	if err != nil {
		return nil, err
	}
	metas := make([]types.DataBlobMetadata, 0, entityMask.Count())
	for _, typeID := range entityMask.Indices() {
		meta, ok := m.types.ByID(typeID)
		if !ok {
			return nil, eris.Wrapf(types.ErrUnregisteredType, "type id %d", typeID)
		}
		metas = append(metas, meta)
	}
	return metas, nil
}
