// Package store provides persistence for entity instances and the
// transactional outbox.
//
// The Store interface is the persistence-agnostic contract the runtime
// engine uses: six tenant-scoped methods over opaque instance payloads.
// Concrete adapters decide how tenancy maps to their backend; callers
// never see another tenant's rows, even for a colliding id.
//
// ATOMICITY: the load-bearing invariant of the whole engine is that a
// command's emitted events become durable in the SAME transaction as
// the state mutation that produced them. Stores that can honor this
// implement EventWriter; the SQLite adapter writes the instance update
// and its outbox rows in one database transaction, so a crash can never
// leave an event without its mutation or a mutation without its events.
package store
