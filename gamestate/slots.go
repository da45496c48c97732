package gamestate

import (
	"container/heap"

	"pkg.world.dev/world-engine/blobstore/types"
)

// freeSlots is a min-heap of released slots.
type freeSlots []types.Slot

var _ heap.Interface = (*freeSlots)(nil)

func (f freeSlots) Len() int           { return len(f) }
func (f freeSlots) Less(i, j int) bool { return f[i] < f[j] }
func (f freeSlots) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }

func (f *freeSlots) Push(x any) {
	*f = append(*f, x.(types.Slot)) //nolint:forcetypeassert // only slots are pushed
}

func (f *freeSlots) Pop() any {
	old := *f
	n := len(old)
	slot := old[n-1]
	*f = old[:n-1]
	return slot
}
