package datablob_test

import (
	"testing"

	"pkg.world.dev/world-engine/blobstore/assert"
	"pkg.world.dev/world-engine/blobstore/datablob"
	"pkg.world.dev/world-engine/blobstore/types"
)

type Hull struct {
	datablob.Base
	Integrity float64 `json:"integrity"`
}

func (Hull) Name() string { return "Hull" }

type HullV2 struct {
	datablob.Base
	Integrity float64 `json:"integrity"`
	Armor     int     `json:"armor"`
}

func (HullV2) Name() string { return "Hull" }

func TestMetadataDescribesPointerType(t *testing.T) {
	meta, err := datablob.NewMetadata[*Hull]()
	assert.NilError(t, err)
	assert.Equal(t, "Hull", meta.Name())
	assert.Equal(t, datablob.TypeOf[*Hull](), meta.Type())
	assert.NotEqual(t, datablob.TypeOf[Hull](), meta.Type())
}

func TestEncodeDecode(t *testing.T) {
	meta := datablob.MustNewMetadata[*Hull]()
	hull := &Hull{Integrity: 0.5}
	hull.SetOwner(4)

	bz, err := meta.Encode(hull)
	assert.NilError(t, err)
	assert.JSONEq(t, `{"integrity":0.5}`, string(bz))

	decoded, err := meta.Decode(bz)
	assert.NilError(t, err)
	got, ok := decoded.(*Hull)
	assert.True(t, ok)
	assert.Equal(t, 0.5, got.Integrity)
	assert.Equal(t, types.NoSlot, got.Owner())

	_, err = meta.Encode(&HullV2{})
	assert.ErrorContains(t, err, "cannot encode")
	_, err = meta.Decode([]byte("not json"))
	assert.Check(t, err != nil)
}

func TestDecodeRejectsFieldsTheTypeDoesNotHave(t *testing.T) {
	v2 := datablob.MustNewMetadata[*HullV2]()
	bz, err := v2.Encode(&HullV2{Integrity: 1, Armor: 3})
	assert.NilError(t, err)

	_, err = datablob.MustNewMetadata[*Hull]().Decode(bz)
	assert.Check(t, err != nil)

	decoded, err := v2.Decode(bz)
	assert.NilError(t, err)
	got, ok := decoded.(*HullV2)
	assert.True(t, ok)
	assert.Equal(t, 3, got.Armor)
}

func TestSetID(t *testing.T) {
	meta := datablob.MustNewMetadata[*Hull]()
	assert.NilError(t, meta.SetID(2))
	assert.NilError(t, meta.SetID(2))
	assert.ErrorContains(t, meta.SetID(3), "already set")
	assert.Equal(t, types.TypeID(2), meta.ID())
}

func TestSchemaValidation(t *testing.T) {
	v1 := datablob.MustNewMetadata[*Hull]()
	v2 := datablob.MustNewMetadata[*HullV2]()

	assert.NilError(t, v1.ValidateAgainstSchema(v1.GetSchema()))
	assert.ErrorIs(t, v1.ValidateAgainstSchema(v2.GetSchema()), datablob.ErrSchemaMismatch)
}

func TestWithName(t *testing.T) {
	meta := datablob.MustNewMetadata[*Hull](datablob.WithName[*Hull]("LegacyHull"))
	assert.Equal(t, "LegacyHull", meta.Name())

	_, err := datablob.NewMetadata[*Hull](datablob.WithName[*Hull](""))
	assert.ErrorContains(t, err, "non-empty name")
}

func TestBaseOwner(t *testing.T) {
	var b datablob.Base
	assert.Equal(t, types.NoSlot, b.Owner())
	b.SetOwner(0)
	assert.Equal(t, types.Slot(0), b.Owner())
	b.SetOwner(types.NoSlot)
	assert.Equal(t, types.NoSlot, b.Owner())
}
