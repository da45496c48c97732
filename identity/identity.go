// Package identity holds the process-wide map from global identifier to the entity manager that currently owns it.
//
// One Registry is created at process start and handed to every entity manager; there is no package-level instance.
// Every change happens inside Update, which holds the registry's write lock for the whole callback, so a reader
// using View or Resolve sees either the state before a create/remove/transfer or the state after it, never a
// mixture. Lock order is always registry first, then entity manager.
package identity

import (
	"sync"

	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/blobstore/types"
)

// Owner is an entity manager as seen by the registry.
type Owner interface {
	// LocalSlot resolves id inside the owner. It is called while the registry lock is held.
	LocalSlot(id types.GlobalID) (types.Slot, bool)
}

type Registry struct {
	mu      sync.RWMutex
	owners  map[types.GlobalID]Owner
	retired map[types.GlobalID]struct{}
}

func New() *Registry {
	return &Registry{
		owners:  map[types.GlobalID]Owner{},
		retired: map[types.GlobalID]struct{}{},
	}
}

// Update runs fn with exclusive access to the registry. If fn returns an error every registry change made through
// the transaction is rolled back before Update returns.
func (r *Registry) Update(fn func(tx *Txn) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &Txn{reg: r}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// View runs fn with shared access to the registry.
func (r *Registry) View(fn func(tx *ReadTxn) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fn(&ReadTxn{reg: r})
}

// Resolve returns the owner of id and the slot id occupies there.
func (r *Registry) Resolve(id types.GlobalID) (Owner, types.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolve(id)
}

func (r *Registry) resolve(id types.GlobalID) (Owner, types.Slot, error) {
	owner, ok := r.owners[id]
	if !ok {
		return nil, types.NoSlot, eris.Wrap(types.ErrIdentityNotFound, id.String())
	}
	slot, ok := owner.LocalSlot(id)
	if !ok {
		return nil, types.NoSlot, eris.Wrapf(types.ErrIdentityCorrupt,
			"%s is registered globally but not in its owning manager", id)
	}
	return owner, slot, nil
}

// Len returns the number of live identifiers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owners)
}

// IsRetired reports whether id belonged to an entity that has been removed for good.
func (r *Registry) IsRetired(id types.GlobalID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.retired[id]
	return ok
}

type ReadTxn struct {
	reg *Registry
}

func (tx *ReadTxn) Owner(id types.GlobalID) (Owner, bool) {
	owner, ok := tx.reg.owners[id]
	return owner, ok
}

func (tx *ReadTxn) Resolve(id types.GlobalID) (Owner, types.Slot, error) {
	return tx.reg.resolve(id)
}

// CanClaim reports why id could not be claimed right now, or nil if it can.
func (tx *ReadTxn) CanClaim(id types.GlobalID) error {
	return tx.reg.available(id)
}

// Txn is a write transaction. It is only valid inside the Update callback that created it.
type Txn struct {
	reg  *Registry
	undo []func()
}

func (tx *Txn) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

// Mint returns an identifier that has never been live or retired in this registry.
func (tx *Txn) Mint() types.GlobalID {
	for {
		id := types.NewGlobalID()
		if tx.reg.available(id) == nil {
			return id
		}
	}
}

func (r *Registry) available(id types.GlobalID) error {
	if id.IsNil() {
		return eris.Wrap(types.ErrIdentityConflict, "the nil identifier cannot be claimed")
	}
	if _, ok := r.retired[id]; ok {
		return eris.Wrap(types.ErrIdentityRetired, id.String())
	}
	if _, ok := r.owners[id]; ok {
		return eris.Wrap(types.ErrIdentityConflict, id.String())
	}
	return nil
}

// CanClaim reports why id could not be claimed, or nil if it can.
func (tx *Txn) CanClaim(id types.GlobalID) error {
	return tx.reg.available(id)
}

// Claim registers id as owned by owner.
func (tx *Txn) Claim(id types.GlobalID, owner Owner) error {
	if err := tx.reg.available(id); err != nil {
		return err
	}
	tx.reg.owners[id] = owner
	tx.undo = append(tx.undo, func() { delete(tx.reg.owners, id) })
	return nil
}

// Move hands id from one owner to another without it ever being unowned.
func (tx *Txn) Move(id types.GlobalID, from, to Owner) error {
	current, ok := tx.reg.owners[id]
	if !ok {
		return eris.Wrap(types.ErrIdentityNotFound, id.String())
	}
	if current != from {
		return eris.Wrapf(types.ErrIdentityCorrupt, "%s is not owned by the transferring manager", id)
	}
	tx.reg.owners[id] = to
	tx.undo = append(tx.undo, func() { tx.reg.owners[id] = from })
	return nil
}

// Retire removes id for good. A retired identifier can never be claimed again.
func (tx *Txn) Retire(id types.GlobalID, owner Owner) error {
	current, ok := tx.reg.owners[id]
	if !ok {
		return eris.Wrap(types.ErrIdentityNotFound, id.String())
	}
	if current != owner {
		return eris.Wrapf(types.ErrIdentityCorrupt, "%s is not owned by the removing manager", id)
	}
	delete(tx.reg.owners, id)
	tx.reg.retired[id] = struct{}{}
	tx.undo = append(tx.undo, func() {
		delete(tx.reg.retired, id)
		tx.reg.owners[id] = current
	})
	return nil
}

func (tx *Txn) Owner(id types.GlobalID) (Owner, bool) {
	owner, ok := tx.reg.owners[id]
	return owner, ok
}
