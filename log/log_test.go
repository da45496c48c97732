package log_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"

	"pkg.world.dev/world-engine/blobstore/assert"
	"pkg.world.dev/world-engine/blobstore/blobs"
	"pkg.world.dev/world-engine/blobstore/log"
	"pkg.world.dev/world-engine/blobstore/registry"
	"pkg.world.dev/world-engine/blobstore/types"
)

func TestRegistryLog(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	reg := registry.New()
	assert.NilError(t, reg.Register(blobs.All()...))

	log.Registry(&logger, reg, zerolog.InfoLevel)
	assert.JSONEq(t, `{
		"level":"info",
		"total_data_blob_types":5,
		"data_blob_types":[
			{"type_id":0,"type_name":"Position"},
			{"type_id":1,"type_name":"MassVolume"},
			{"type_id":2,"type_name":"Orbit"},
			{"type_id":3,"type_name":"Name"},
			{"type_id":4,"type_name":"Ship"}
		]
	}`, buf.String())
}

func TestEntityAndTransferLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	id := types.NewGlobalID()

	log.Entity(&logger, zerolog.InfoLevel, "entity created", 2, id,
		[]types.DataBlob{&blobs.Position{}, &blobs.Ship{}})
	assert.JSONEq(t, `{
		"level":"info",
		"data_blobs":["Position","Ship"],
		"slot":2,
		"global_id":"`+id.String()+`",
		"message":"entity created"
	}`, buf.String())

	buf.Reset()
	log.Transfer(&logger, zerolog.InfoLevel, id, "A", 2, "B", 0)
	assert.Contains(t, buf.String(), `"from":"A"`)
	assert.Contains(t, buf.String(), `"to":"B"`)
}

func TestDisabledLevelWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.WarnLevel)
	log.Entity(&logger, zerolog.DebugLevel, "entity created", 0, types.NewGlobalID(), nil)
	assert.Equal(t, 0, buf.Len())
	assert.False(t, log.Enabled(nil, zerolog.ErrorLevel))
}

func TestSubLoggers(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	log.CreatePartitionLogger(log.CreateManagerLogger(&logger, "A"), 3).Info().Msg("hi")
	assert.JSONEq(t, `{"level":"info","manager":"A","partition":3,"message":"hi"}`, buf.String())
}
