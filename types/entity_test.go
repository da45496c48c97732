package types_test

import (
	"testing"

	"github.com/goccy/go-json"

	"pkg.world.dev/world-engine/blobstore/assert"
	"pkg.world.dev/world-engine/blobstore/types"
)

func TestGlobalIDText(t *testing.T) {
	id := types.NewGlobalID()
	assert.False(t, id.IsNil())
	assert.True(t, types.NilGlobalID.IsNil())

	parsed, err := types.ParseGlobalID(id.String())
	assert.NilError(t, err)
	assert.Equal(t, id, parsed)

	_, err = types.ParseGlobalID("not-a-uuid")
	assert.ErrorContains(t, err, "invalid UUID")
}

func TestGlobalIDAsMapKeyInJSON(t *testing.T) {
	id := types.NewGlobalID()
	bz, err := json.Marshal(map[string]types.GlobalID{"id": id})
	assert.NilError(t, err)
	assert.JSONEq(t, `{"id":"`+id.String()+`"}`, string(bz))

	var out map[string]types.GlobalID
	assert.NilError(t, json.Unmarshal(bz, &out))
	assert.Equal(t, id, out["id"])
}
