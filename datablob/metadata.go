package datablob

import (
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"

	"pkg.world.dev/world-engine/blobstore/codec"
	"pkg.world.dev/world-engine/blobstore/types"
)

// Interface guard
var _ types.DataBlobMetadata = (*metadata[types.DataBlob])(nil)

// ErrSchemaMismatch is returned when a saved schema does not match the schema of the registered Go type.
var ErrSchemaMismatch = eris.New("data blob schema does not match")

// Option is a type that can be passed to NewMetadata to augment the creation of the data blob type.
type Option[T types.DataBlob] func(m *metadata[T])

// metadata represents one type of data blob. It is used to identify a data blob type when getting or setting the
// data blobs of an entity.
type metadata[T types.DataBlob] struct {
	isIDSet  bool
	id       types.TypeID
	blobType reflect.Type
	name     string
	schema   []byte
}

// NewMetadata creates the metadata for the data blob type T. T is usually a pointer type such as *Position so the
// store can write the owning slot back into the instance.
func NewMetadata[T types.DataBlob](opts ...Option[T]) (types.DataBlobMetadata, error) {
	blobType := TypeOf[T]()
	zero := newZero[T]()

	schemaType := blobType
	if schemaType.Kind() == reflect.Pointer {
		schemaType = schemaType.Elem()
	}
	schema, err := jsonschema.ReflectFromType(schemaType).MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "data blob must be json serializable")
	}

	m := &metadata[T]{
		blobType: blobType,
		name:     zero.Name(),
		schema:   schema,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.name == "" {
		return nil, eris.Errorf("data blob type %s must have a non-empty name", blobType)
	}
	return m, nil
}

// MustNewMetadata is NewMetadata for package-level declarations. It panics on error.
func MustNewMetadata[T types.DataBlob](opts ...Option[T]) types.DataBlobMetadata {
	m, err := NewMetadata[T](opts...)
	if err != nil {
		panic(eris.ToString(err, true))
	}
	return m
}

// TypeOf returns the type token used to index T.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func newZero[T types.DataBlob]() T {
	var t T
	rt := reflect.TypeOf(&t).Elem()
	if rt.Kind() == reflect.Pointer {
		// Name() may be declared on the value receiver, which panics through a nil pointer.
		return reflect.New(rt.Elem()).Interface().(T) //nolint:forcetypeassert // rt is T's own type
	}
	return t
}

func (m *metadata[T]) GetSchema() []byte {
	return m.schema
}

// SetID sets this data blob type's dense index. It must be unique across a type registry.
func (m *metadata[T]) SetID(id types.TypeID) error {
	if m.isIDSet {
		// The same metadata may be registered with several registries in tests. That is fine as long as the
		// index does not change.
		if id == m.id {
			return nil
		}
		return eris.Errorf("id for data blob type %v is already set to %v, cannot change to %v", m, m.id, id)
	}
	m.id = id
	m.isIDSet = true
	return nil
}

func (m *metadata[T]) String() string {
	return m.name
}

func (m *metadata[T]) Name() string {
	return m.name
}

func (m *metadata[T]) ID() types.TypeID {
	return m.id
}

func (m *metadata[T]) Type() reflect.Type {
	return m.blobType
}

func (m *metadata[T]) Encode(blob types.DataBlob) ([]byte, error) {
	if _, ok := blob.(T); !ok {
		return nil, eris.Errorf("cannot encode %T as data blob type %s", blob, m.name)
	}
	return codec.Encode(blob)
}

func (m *metadata[T]) Decode(bz []byte) (types.DataBlob, error) {
	return codec.DecodeStrict[T](bz)
}

func (m *metadata[T]) ValidateAgainstSchema(targetSchema []byte) error {
	diff, err := jsondiff.CompareJSON(m.schema, targetSchema)
	if err != nil {
		return eris.Wrap(err, "failed to compare data blob schema")
	}

	if diff.String() != "" {
		return eris.Wrap(ErrSchemaMismatch, fmt.Sprintf("%s: %s", m.name, diff.String()))
	}

	return nil
}

// WithName overrides the name reported by T.Name(). Useful when two packages declare blobs with the same name.
func WithName[T types.DataBlob](name string) Option[T] {
	return func(m *metadata[T]) {
		m.name = name
	}
}
