// Package state derives memories and commitments from the operation sequence.
//
// Every function here is a pure fold over an immutable []model.Operation:
// no caching, no I/O, no hidden mutable state. Replaying the same ledger
// always yields the same projections.
package state
