package gamestate

import (
	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/blobstore/datablob"
	"pkg.world.dev/world-engine/blobstore/types"
)

// TypeIDOf returns the index m's registry assigned to T.
func TypeIDOf[T types.DataBlob](m *EntityManager) (types.TypeID, error) {
	return m.types.IndexFor(datablob.TypeOf[T]())
}

// GetDataBlob returns the data blob of type T attached to slot.
func GetDataBlob[T types.DataBlob](m *EntityManager, slot types.Slot) (T, error) {
	var zero T
	typeID, err := TypeIDOf[T](m)
	if err != nil {
		return zero, err
	}
	blob, err := m.DataBlob(slot, typeID)
	if err != nil {
		return zero, err
	}
	t, ok := blob.(T)
	if !ok {
		return zero, eris.Errorf("data blob in column %d is %T, not %T", typeID, blob, zero)
	}
	return t, nil
}

// RemoveDataBlobOf detaches the data blob of type T from slot.
func RemoveDataBlobOf[T types.DataBlob](m *EntityManager, slot types.Slot) error {
	typeID, err := TypeIDOf[T](m)
	if err != nil {
		return err
	}
	return m.RemoveDataBlob(slot, typeID)
}

// EntitiesWithType returns every live slot holding a data blob of type T, in ascending order.
func EntitiesWithType[T types.DataBlob](m *EntityManager) ([]types.Slot, error) {
	typeID, err := TypeIDOf[T](m)
	if err != nil {
		return nil, err
	}
	return m.EntitiesWith(typeID)
}

// FirstEntityWithType returns the lowest live slot holding a data blob of type T, or types.NoSlot. An unregistered T
// also yields types.NoSlot.
func FirstEntityWithType[T types.DataBlob](m *EntityManager) types.Slot {
	typeID, err := TypeIDOf[T](m)
	if err != nil {
		return types.NoSlot
	}
	return m.FirstEntityWith(typeID)
}

// AllDataBlobsOfType returns every live data blob of type T, in ascending slot order.
func AllDataBlobsOfType[T types.DataBlob](m *EntityManager) ([]T, error) {
	typeID, err := TypeIDOf[T](m)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]T, 0)
	for s, blob := range m.columns[typeID] {
		if blob == nil || !m.claimed[s] {
			continue
		}
		t, ok := blob.(T)
		if !ok {
			return nil, eris.Errorf("data blob in column %d is %T", typeID, blob)
		}
		out = append(out, t)
	}
	return out, nil
}

// Joined is one row of a two-type join.
type Joined[A, B types.DataBlob] struct {
	Slot types.Slot
	A    A
	B    B
}

// EntitiesWithTwo returns every live entity holding both an A and a B together with those two data blobs. Both
// columns are read in the same pass; rows come back in ascending slot order.
func EntitiesWithTwo[A, B types.DataBlob](m *EntityManager) ([]Joined[A, B], error) {
	typeA, err := TypeIDOf[A](m)
	if err != nil {
		return nil, err
	}
	typeB, err := TypeIDOf[B](m)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	colA, colB := m.columns[typeA], m.columns[typeB]
	out := make([]Joined[A, B], 0)
	for s, claimed := range m.claimed {
		if !claimed || colA[s] == nil || colB[s] == nil {
			continue
		}
		a, okA := colA[s].(A)
		b, okB := colB[s].(B)
		if !okA || !okB {
			return nil, eris.Errorf("unexpected data blob types %T, %T on slot %d", colA[s], colB[s], s)
		}
		out = append(out, Joined[A, B]{Slot: types.Slot(s), A: a, B: b})
	}
	return out, nil
}

// JoinedMap is EntitiesWithTwo keyed by slot.
func JoinedMap[A, B types.DataBlob](m *EntityManager) (map[types.Slot]Joined[A, B], error) {
	rows, err := EntitiesWithTwo[A, B](m)
	if err != nil {
		return nil, err
	}
	out := make(map[types.Slot]Joined[A, B], len(rows))
	for _, row := range rows {
		out[row.Slot] = row
	}
	return out, nil
}
