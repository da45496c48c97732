// Package mask implements the capability mask: a fixed-length bitset with one bit per registered data blob type.
// An entity's mask records which types it holds; a query mask records which types a query requires.
//
// Masks of different lengths never mix. Combining them, or touching a bit outside the declared length, is a
// programming error and panics.
package mask

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/blobstore/types"
)

// Mask is a fixed-length bit vector. Set mutates the receiver's bits in place, so a Mask copied by value shares
// storage with the original; use Clone for an independent copy.
type Mask struct {
	bits *bitset.BitSet
	n    uint
}

// Blank returns an all-false mask of the given length.
func Blank(length int) Mask {
	if length < 0 {
		panic(eris.Wrapf(types.ErrIndexOutOfRange, "negative mask length %d", length))
	}
	return Mask{bits: bitset.New(uint(length)), n: uint(length)}
}

// Of returns a mask of the given length with the given bits set.
func Of(length int, ids ...types.TypeID) Mask {
	m := Blank(length)
	for _, id := range ids {
		m.Set(id, true)
	}
	return m
}

func (m Mask) Len() int {
	return int(m.n)
}

func (m Mask) check(i types.TypeID) {
	if i < 0 || uint(i) >= m.n {
		panic(eris.Wrapf(types.ErrIndexOutOfRange, "index %d, length %d", i, m.n))
	}
}

func (m Mask) checkLen(other Mask) {
	if m.n != other.n {
		panic(eris.Wrapf(types.ErrLengthMismatch, "%d != %d", m.n, other.n))
	}
}

func (m Mask) Set(i types.TypeID, value bool) {
	m.check(i)
	m.bits.SetTo(uint(i), value)
}

func (m Mask) Get(i types.TypeID) bool {
	m.check(i)
	return m.bits.Test(uint(i))
}

// And returns a new mask holding m & other.
func (m Mask) And(other Mask) Mask {
	m.checkLen(other)
	if m.n == 0 {
		return Blank(0)
	}
	return Mask{bits: m.bits.Intersection(other.bits), n: m.n}
}

// Or returns a new mask holding m | other.
func (m Mask) Or(other Mask) Mask {
	m.checkLen(other)
	if m.n == 0 {
		return Blank(0)
	}
	return Mask{bits: m.bits.Union(other.bits), n: m.n}
}

func (m Mask) Equals(other Mask) bool {
	m.checkLen(other)
	if m.n == 0 {
		return true
	}
	return m.bits.Equal(other.bits)
}

// Matches reports whether m holds at least every bit of query, i.e. (m & query) == query. It does not allocate.
func (m Mask) Matches(query Mask) bool {
	m.checkLen(query)
	if m.n == 0 {
		return true
	}
	return m.bits.IsSuperSet(query.bits)
}

// Count returns the number of set bits.
func (m Mask) Count() int {
	if m.bits == nil {
		return 0
	}
	return int(m.bits.Count())
}

func (m Mask) IsEmpty() bool {
	return m.bits == nil || m.bits.None()
}

// Reset clears every bit in place.
func (m Mask) Reset() {
	if m.bits != nil {
		m.bits.ClearAll()
	}
}

func (m Mask) Clone() Mask {
	if m.bits == nil {
		return Blank(int(m.n))
	}
	return Mask{bits: m.bits.Clone(), n: m.n}
}

// Indices returns the set bits in ascending order.
func (m Mask) Indices() []types.TypeID {
	out := make([]types.TypeID, 0, m.Count())
	if m.bits == nil {
		return out
	}
	for i, ok := m.bits.NextSet(0); ok; i, ok = m.bits.NextSet(i + 1) {
		out = append(out, types.TypeID(i))
	}
	return out
}

func (m Mask) String() string {
	buf := make([]byte, m.n)
	for i := uint(0); i < m.n; i++ {
		if m.bits.Test(i) {
			buf[i] = '1'
		} else {
			buf[i] = '0'
		}
	}
	return string(buf)
}
