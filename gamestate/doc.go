/*
Package gamestate implements the entity manager: the columnar store that owns one partition of the simulated universe
(for example one star system).

# Storage model

An EntityManager keeps, for every slot:

	claimed[slot]            whether the slot holds a live entity
	masks[slot]              the capability mask, one bit per registered data blob type
	columns[typeID][slot]    the data blob of that type, or nil
	reverse[slot]            the entity's global identifier

plus a local index from global identifier to slot. All columns have the same length as the slot table and grow
together. Free slots are kept in a min-heap so CreateEntity always reuses the lowest free slot, which keeps the
columns compact.

Attaching or detaching a data blob writes the column entry and the mask bit under the same lock, so the mask bit for
type i is set exactly when the column for type i holds a data blob.

# Identity

Every entity has a global identifier registered in an identity.Registry that is shared by all managers of a
process. Create, remove and transfer run inside one identity.Registry.Update: the registry's write lock is taken
first, then the lock of every manager involved. A concurrent Resolve therefore sees an identifier either in the
source manager or in the destination manager, never in both and never in neither.

Data blob reads, writes and queries only take the manager's own lock.

# Queries

EntitiesWithMask scans the slot table and keeps every claimed slot whose mask holds all bits of the query mask.
Results are always in ascending slot order. EntitiesWithTwo joins two columns in a single scan.
*/
package gamestate
