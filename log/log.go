// Package log holds the structured logging helpers shared by the entity managers and the universe driver. All
// output goes through zerolog.
package log

import (
	"github.com/rs/zerolog"

	"pkg.world.dev/world-engine/blobstore/types"
)

// Loggable is anything that can list its registered data blob types.
type Loggable interface {
	All() []types.DataBlobMetadata
}

// Enabled reports whether an event at level would be written by logger.
func Enabled(logger *zerolog.Logger, level zerolog.Level) bool {
	return logger != nil && level >= logger.GetLevel() && level >= zerolog.GlobalLevel()
}

func loadDataBlobIntoArrayLogger(meta types.DataBlobMetadata, arrayLogger *zerolog.Array) *zerolog.Array {
	dictLogger := zerolog.Dict()
	dictLogger = dictLogger.Int("type_id", int(meta.ID()))
	dictLogger = dictLogger.Str("type_name", meta.Name())
	return arrayLogger.Dict(dictLogger)
}

func loadDataBlobTypesToEvent(zeroLoggerEvent *zerolog.Event, target Loggable) *zerolog.Event {
	metas := target.All()
	zeroLoggerEvent.Int("total_data_blob_types", len(metas))
	arrayLogger := zerolog.Arr()
	for _, meta := range metas {
		arrayLogger = loadDataBlobIntoArrayLogger(meta, arrayLogger)
	}
	return zeroLoggerEvent.Array("data_blob_types", arrayLogger)
}

func loadEntityIntoEvent(
	zeroLoggerEvent *zerolog.Event, slot types.Slot, id types.GlobalID, blobs []types.DataBlob,
) *zerolog.Event {
	arrayLogger := zerolog.Arr()
	for _, blob := range blobs {
		arrayLogger = arrayLogger.Str(blob.Name())
	}
	zeroLoggerEvent.Array("data_blobs", arrayLogger)
	zeroLoggerEvent.Int("slot", int(slot))
	return zeroLoggerEvent.Str("global_id", id.String())
}

// Registry logs every registered data blob type.
func Registry(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	if !Enabled(logger, level) {
		return
	}
	zeroLoggerEvent := logger.WithLevel(level)
	loadDataBlobTypesToEvent(zeroLoggerEvent, target).Send()
}

// Entity logs an entity lifecycle event.
func Entity(
	logger *zerolog.Logger, level zerolog.Level, msg string,
	slot types.Slot, id types.GlobalID, blobs []types.DataBlob,
) {
	if !Enabled(logger, level) {
		return
	}
	zeroLoggerEvent := logger.WithLevel(level)
	loadEntityIntoEvent(zeroLoggerEvent, slot, id, blobs).Msg(msg)
}

// Transfer logs an entity moving between managers.
func Transfer(
	logger *zerolog.Logger, level zerolog.Level, id types.GlobalID,
	from string, fromSlot types.Slot, to string, toSlot types.Slot,
) {
	if !Enabled(logger, level) {
		return
	}
	logger.WithLevel(level).
		Str("global_id", id.String()).
		Str("from", from).
		Int("from_slot", int(fromSlot)).
		Str("to", to).
		Int("to_slot", int(toSlot)).
		Msg("entity transferred")
}

// CreateManagerLogger creates a sub logger with the entry {"manager": name}.
func CreateManagerLogger(logger *zerolog.Logger, name string) *zerolog.Logger {
	newLogger := logger.With().Str("manager", name).Logger()
	return &newLogger
}

// CreatePartitionLogger creates a sub logger with the entry {"partition": index}.
func CreatePartitionLogger(logger *zerolog.Logger, index int) *zerolog.Logger {
	newLogger := logger.With().Int("partition", index).Logger()
	return &newLogger
}
