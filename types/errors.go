package types

import (
	"github.com/rotisserie/eris"
)

// Precondition violations. These are programming errors and are never retried.
var (
	ErrDuplicateType      = eris.New("data blob type registered with conflicting metadata")
	ErrRegistryFrozen     = eris.New("data blob type registry is frozen")
	ErrUnregisteredType   = eris.New("must register data blob type")
	ErrNilDataBlob        = eris.New("data blob must not be nil, use RemoveDataBlob to detach a data blob")
	ErrLengthMismatch     = eris.New("masks have different lengths")
	ErrIndexOutOfRange    = eris.New("mask index out of range")
	ErrMaskLengthMismatch = eris.New("mask must contain a bit for each registered data blob type")
	ErrRegistryMismatch   = eris.New("entity managers do not share an identity registry")
	ErrDataBlobAttached   = eris.New("data blob instance is already attached to another entity")
)

// Not-found conditions. Callers are expected to handle these.
var (
	ErrInvalidSlot      = eris.New("invalid entity slot")
	ErrDataBlobNotFound = eris.New("data blob not on entity")
	ErrIdentityNotFound = eris.New("global identifier not found")
)

// Identity conflicts and invariant violations.
var (
	ErrIdentityConflict = eris.New("global identifier already belongs to a live entity")
	ErrIdentityRetired  = eris.New("global identifier belonged to a removed entity and cannot be reused")
	ErrNoIdentity       = eris.New("entity has no global identifier, possible data corruption")
	ErrIdentityCorrupt  = eris.New("global identifier registry disagrees with the owning manager")
)
