// Package snapshot turns the live contents of an entity manager into bytes and back. It sits outside the store and
// only uses the manager's public enumeration and CreateEntityWithIdentity, so global identifiers survive the round
// trip exactly.
package snapshot

import (
	"sort"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"pkg.world.dev/world-engine/blobstore/codec"
	"pkg.world.dev/world-engine/blobstore/gamestate"
	"pkg.world.dev/world-engine/blobstore/identity"
	"pkg.world.dev/world-engine/blobstore/types"
)

const Version = 1

type Snapshot struct {
	Version int    `json:"version"`
	Manager string `json:"manager"`
	// Schemas maps every data blob type name in use to the JSON schema it was encoded with.
	Schemas  map[string]json.RawMessage `json:"schemas"`
	Entities []Entity                   `json:"entities"`
}

type Entity struct {
	ID        types.GlobalID             `json:"id"`
	DataBlobs map[string]json.RawMessage `json:"dataBlobs"`
}

// Take captures every live entity of m, in ascending slot order.
func Take(m *gamestate.EntityManager) (*Snapshot, error) {
	snap := &Snapshot{
		Version:  Version,
		Manager:  m.Name(),
		Schemas:  map[string]json.RawMessage{},
		Entities: []Entity{},
	}
	for _, e := range m.Entities() {
		entry := Entity{ID: e.ID, DataBlobs: make(map[string]json.RawMessage, len(e.DataBlobs))}
		for _, blob := range e.DataBlobs {
			typeID, err := m.TypeRegistry().IndexOf(blob)
			if err != nil {
				return nil, err
			}
			meta, _ := m.TypeRegistry().ByID(typeID)
			bz, err := meta.Encode(blob)
			if err != nil {
				return nil, eris.Wrapf(err, "failed to encode %s of %s", meta.Name(), e.ID)
			}
			entry.DataBlobs[meta.Name()] = bz
			if _, ok := snap.Schemas[meta.Name()]; !ok {
				snap.Schemas[meta.Name()] = meta.GetSchema()
			}
		}
		snap.Entities = append(snap.Entities, entry)
	}
	return snap, nil
}

// Restore re-creates every entity of snap in m under its original identifier. Everything is decoded and checked
// before the first entity is created, so a bad snapshot leaves m untouched. That includes identifiers that are
// repeated in snap or are already live or retired in m's identity registry. Entities created concurrently through
// the same registry between the check and the restore can still make Restore fail part way.
func Restore(snap *Snapshot, m *gamestate.EntityManager) error {
	if snap == nil {
		return eris.New("snapshot must not be nil")
	}
	if snap.Version != Version {
		return eris.Errorf("unsupported snapshot version %d", snap.Version)
	}
	reg := m.TypeRegistry()
	for name, schema := range snap.Schemas {
		meta, ok := reg.ByName(name)
		if !ok {
			return eris.Wrapf(types.ErrUnregisteredType, "snapshot uses %q", name)
		}
		if err := meta.ValidateAgainstSchema(schema); err != nil {
			return err
		}
	}

	decoded := make([][]types.DataBlob, len(snap.Entities))
	for i, e := range snap.Entities {
		metas := make([]types.DataBlobMetadata, 0, len(e.DataBlobs))
		for name := range e.DataBlobs {
			meta, ok := reg.ByName(name)
			if !ok {
				return eris.Wrapf(types.ErrUnregisteredType, "entity %s uses %q", e.ID, name)
			}
			metas = append(metas, meta)
		}
		sort.Slice(metas, func(a, b int) bool { return metas[a].ID() < metas[b].ID() })

		blobs := make([]types.DataBlob, 0, len(metas))
		for _, meta := range metas {
			blob, err := meta.Decode(e.DataBlobs[meta.Name()])
			if err != nil {
				return eris.Wrapf(err, "failed to decode %s of %s", meta.Name(), e.ID)
			}
			blobs = append(blobs, blob)
		}
		decoded[i] = blobs
	}

	if err := checkIdentifiers(snap, m); err != nil {
		return err
	}

	for i, e := range snap.Entities {
		id := e.ID
		if _, _, err := m.CreateEntityWithIdentity(&id, decoded[i]...); err != nil {
			return eris.Wrapf(err, "failed to restore entity %s", e.ID)
		}
	}
	m.Logger().Debug().Int("entities", len(snap.Entities)).Str("from", snap.Manager).Msg("snapshot restored")
	return nil
}

func checkIdentifiers(snap *Snapshot, m *gamestate.EntityManager) error {
	seen := make(map[types.GlobalID]struct{}, len(snap.Entities))
	return m.IdentityRegistry().View(func(tx *identity.ReadTxn) error {
		for _, e := range snap.Entities {
			if _, ok := seen[e.ID]; ok {
				return eris.Wrapf(types.ErrIdentityConflict, "%s appears twice in the snapshot", e.ID)
			}
			seen[e.ID] = struct{}{}
			if err := tx.CanClaim(e.ID); err != nil {
				return eris.Wrapf(err, "failed to restore entity %s", e.ID)
			}
		}
		return nil
	})
}

func Marshal(snap *Snapshot) ([]byte, error) {
	return codec.Encode(snap)
}

func Unmarshal(bz []byte) (*Snapshot, error) {
	snap, err := codec.Decode[Snapshot](bz)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
