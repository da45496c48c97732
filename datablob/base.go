// Package datablob describes data blob types to the store: their dense index, their Go type token and how they are
// encoded. It also provides Base, an embeddable owner back-reference.
package datablob

import (
	"pkg.world.dev/world-engine/blobstore/types"
)

// Base can be embedded in a data blob struct to receive the slot that owns it. The owner is not serialized.
type Base struct {
	owner types.Slot
	owned bool
}

// Owner returns the slot the data blob was last attached to, or types.NoSlot.
func (b *Base) Owner() types.Slot {
	if !b.owned {
		return types.NoSlot
	}
	return b.owner
}

func (b *Base) SetOwner(slot types.Slot) {
	if slot == types.NoSlot {
		b.owner, b.owned = 0, false
		return
	}
	b.owner, b.owned = slot, true
}
