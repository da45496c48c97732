// Package registry assigns every data blob type a stable dense index. Types are registered explicitly at process
// start; the registry is frozen when the first entity manager is built and is read-only afterwards.
package registry

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/blobstore/types"
)

type Registry struct {
	mu sync.RWMutex

	byType map[reflect.Type]types.DataBlobMetadata
	byName map[string]types.DataBlobMetadata
	byID   []types.DataBlobMetadata
	// Once frozen the maps are never written again, so reads skip the lock.
	frozen atomic.Bool
}

func New() *Registry {
	return &Registry{
		byType: map[reflect.Type]types.DataBlobMetadata{},
		byName: map[string]types.DataBlobMetadata{},
	}
}

// Register adds the given data blob types. Registering a type again under the same name is a no-op that hands the
// existing index to the given metadata.
func (r *Registry) Register(metas ...types.DataBlobMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, meta := range metas {
		if err := r.register(meta); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) register(meta types.DataBlobMetadata) error {
	if meta == nil {
		return eris.Wrap(types.ErrUnregisteredType, "cannot register nil metadata")
	}
	if existing, ok := r.byType[meta.Type()]; ok {
		if existing.Name() != meta.Name() {
			return eris.Wrapf(types.ErrDuplicateType, "type %s registered as %q and %q",
				meta.Type(), existing.Name(), meta.Name())
		}
		return meta.SetID(existing.ID())
	}
	if existing, ok := r.byName[meta.Name()]; ok {
		return eris.Wrapf(types.ErrDuplicateType, "name %q used by %s and %s",
			meta.Name(), existing.Type(), meta.Type())
	}
	if r.frozen.Load() {
		return eris.Wrapf(types.ErrRegistryFrozen, "cannot register %q", meta.Name())
	}

	id := types.TypeID(len(r.byID))
	if err := meta.SetID(id); err != nil {
		return eris.Wrapf(types.ErrDuplicateType, "%v", err)
	}
	r.byType[meta.Type()] = meta
	r.byName[meta.Name()] = meta
	r.byID = append(r.byID, meta)
	return nil
}

// Freeze stops further registrations. It is safe to call more than once.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen.Store(true)
}

func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// Count returns the number of registered data blob types.
func (r *Registry) Count() int {
	if r.frozen.Load() {
		return len(r.byID)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *Registry) Lookup(t reflect.Type) (types.DataBlobMetadata, bool) {
	if r.frozen.Load() {
		meta, ok := r.byType[t]
		return meta, ok
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.byType[t]
	return meta, ok
}

func (r *Registry) ByID(id types.TypeID) (types.DataBlobMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id < 0 || int(id) >= len(r.byID) {
		return nil, false
	}
	return r.byID[id], true
}

func (r *Registry) ByName(name string) (types.DataBlobMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.byName[name]
	return meta, ok
}

// All returns every registered type ordered by index.
func (r *Registry) All() []types.DataBlobMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.DataBlobMetadata, len(r.byID))
	copy(out, r.byID)
	return out
}

// IndexOf returns the index of the dynamic type of blob.
func (r *Registry) IndexOf(blob types.DataBlob) (types.TypeID, error) {
	if blob == nil {
		return 0, eris.Wrap(types.ErrNilDataBlob, "")
	}
	meta, ok := r.Lookup(reflect.TypeOf(blob))
	if !ok {
		return 0, eris.Wrapf(types.ErrUnregisteredType, "%T", blob)
	}
	return meta.ID(), nil
}

// IndexFor returns the index registered for the Go type t.
func (r *Registry) IndexFor(t reflect.Type) (types.TypeID, error) {
	meta, ok := r.Lookup(t)
	if !ok {
		return 0, eris.Wrapf(types.ErrUnregisteredType, "%s", t)
	}
	return meta.ID(), nil
}
