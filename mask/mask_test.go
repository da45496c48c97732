package mask_test

import (
	"testing"

	"pkg.world.dev/world-engine/blobstore/assert"
	"pkg.world.dev/world-engine/blobstore/mask"
	"pkg.world.dev/world-engine/blobstore/types"
)

func TestSetAndGet(t *testing.T) {
	m := mask.Blank(4)
	assert.Equal(t, 4, m.Len())
	assert.True(t, m.IsEmpty())

	m.Set(1, true)
	m.Set(3, true)
	assert.True(t, m.Get(1))
	assert.False(t, m.Get(2))
	assert.Equal(t, 2, m.Count())
	assert.Equal(t, "0101", m.String())
	assert.DeepEqual(t, []types.TypeID{1, 3}, m.Indices())

	m.Set(1, false)
	assert.Equal(t, "0001", m.String())
	m.Reset()
	assert.True(t, m.IsEmpty())
}

func TestAndOrEquals(t *testing.T) {
	a := mask.Of(4, 0, 1)
	b := mask.Of(4, 1, 2)

	assert.Equal(t, "0100", a.And(b).String())
	assert.Equal(t, "1110", a.Or(b).String())
	assert.True(t, a.Equals(mask.Of(4, 1, 0)))
	assert.False(t, a.Equals(b))
	// Operands are not modified.
	assert.Equal(t, "1100", a.String())
}

func TestMatches(t *testing.T) {
	entity := mask.Of(3, 0, 2)
	testCases := []struct {
		query mask.Mask
		want  bool
	}{
		{query: mask.Blank(3), want: true},
		{query: mask.Of(3, 0), want: true},
		{query: mask.Of(3, 0, 2), want: true},
		{query: mask.Of(3, 1), want: false},
		{query: mask.Of(3, 0, 1, 2), want: false},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, entity.Matches(tc.query), tc.query.String())
		assert.Equal(t, tc.want, entity.And(tc.query).Equals(tc.query), tc.query.String())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	a := mask.Of(2, 0)
	b := a.Clone()
	b.Set(1, true)
	assert.Equal(t, "10", a.String())
	assert.Equal(t, "11", b.String())
}

func TestZeroLengthMasks(t *testing.T) {
	a, b := mask.Blank(0), mask.Blank(0)
	assert.True(t, a.Equals(b))
	assert.True(t, a.Matches(b))
	assert.Equal(t, "", a.Or(b).String())
}

func TestLengthMismatchPanics(t *testing.T) {
	a, b := mask.Blank(3), mask.Blank(4)
	assert.PanicsWithErrorIs(t, types.ErrLengthMismatch, func() { a.And(b) })
	assert.PanicsWithErrorIs(t, types.ErrLengthMismatch, func() { a.Or(b) })
	assert.PanicsWithErrorIs(t, types.ErrLengthMismatch, func() { a.Equals(b) })
	assert.PanicsWithErrorIs(t, types.ErrLengthMismatch, func() { a.Matches(b) })
}

func TestIndexOutOfRangePanics(t *testing.T) {
	m := mask.Blank(3)
	assert.PanicsWithErrorIs(t, types.ErrIndexOutOfRange, func() { m.Set(3, true) })
	assert.PanicsWithErrorIs(t, types.ErrIndexOutOfRange, func() { m.Get(-1) })
	assert.PanicsWithErrorIs(t, types.ErrIndexOutOfRange, func() { mask.Of(2, 5) })
	assert.PanicsWithErrorIs(t, types.ErrIndexOutOfRange, func() { mask.Blank(-1) })
}
