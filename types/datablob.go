package types

import (
	"reflect"
)

// TypeID is the dense index of a registered data blob type. Valid values lie in [0, N) where N is the number of
// registered types.
type TypeID int

// DataBlob is the interface every data fragment attached to an entity must implement.
type DataBlob interface {
	// Name returns the stable name of the data blob type.
	Name() string
}

// OwnedDataBlob is implemented by data blobs that want to know which slot currently owns them. The owner is
// informational only and is never used to address storage.
type OwnedDataBlob interface {
	DataBlob
	SetOwner(Slot)
	Owner() Slot
}

// DataBlobMetadata wraps a DataBlob type and carries what the store needs to index, encode and validate it.
type DataBlobMetadata interface {
	// SetID assigns the dense index of this type. It may only be changed before the first assignment.
	SetID(TypeID) error
	// ID returns the dense index of this type.
	ID() TypeID
	// Type returns the Go type token of the data blob.
	Type() reflect.Type
	Encode(DataBlob) ([]byte, error)
	Decode([]byte) (DataBlob, error)
	GetSchema() []byte
	ValidateAgainstSchema(targetSchema []byte) error

	DataBlob
}
