// Package model defines the ledger's data model: the Operation envelope with
// its twelve payload variants, the Memory and Commitment projections folded
// from them, identifier grammar, actor classification and canonical JSON.
//
// Operations are the only persisted unit. Memories and commitments are never
// stored; they are recomputed from the operation sequence by package state.
package model
