package types

import (
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Slot is the address of an entity inside one entity manager. Slots are dense and reused after removal.
type Slot int

// NoSlot is returned by lookups that found nothing.
const NoSlot Slot = -1

// GlobalID is the process-wide identifier of an entity. It is minted once, survives transfers between managers
// and is never handed out again once the entity is removed.
type GlobalID uuid.UUID

// NilGlobalID is the zero identifier. It is never minted.
var NilGlobalID = GlobalID(uuid.Nil)

func NewGlobalID() GlobalID {
	return GlobalID(uuid.New())
}

func ParseGlobalID(s string) (GlobalID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NilGlobalID, eris.Wrap(err, "invalid global identifier")
	}
	return GlobalID(id), nil
}

func (g GlobalID) String() string {
	return uuid.UUID(g).String()
}

func (g GlobalID) IsNil() bool {
	return g == NilGlobalID
}

func (g GlobalID) MarshalText() ([]byte, error) {
	return uuid.UUID(g).MarshalText()
}

func (g *GlobalID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(g).UnmarshalText(data)
}
