// Package harness runs end-to-end ledger scenarios against a real workspace.
//
// A scenario is a YAML file listing operations to submit, the rejection each
// one is expected to produce (if any), and assertions on the final derived
// state:
//
//	name: close_with_evidence
//	description: "Claimed commitment closed with evidence"
//	steps:
//	  - op: capture
//	    as: bug
//	    actor: alice
//	    body: "Login fails on Safari"
//	  - op: commit
//	    as: fix
//	    actor: alice
//	    body: "Fix Safari login"
//	    source: $bug
//	  - op: claim
//	    actor: bob
//	    commitment: $fix
//	    expect_error: E_ALREADY_CLAIMED
//	assertions:
//	  - type: commitment
//	    id: $fix
//	    expect: {state: open, source: $bug}
//
// Values starting with $ refer to the id of an earlier step named with as.
//
// # Assertion Types
//
//   - commitment: compares fields of one commitment's projection
//   - memory: compares fields of one memory's projection
//   - ledger_length: counts accepted operations
//   - replay_stable: folds the ledger twice and compares fingerprints
//
// # Deterministic Testing
//
// Every scenario runs in a fresh temporary workspace. Ids come from
// testutil.SequentialIDs and timestamps from testutil.DeterministicClock, so
// repeated runs produce byte-identical ledgers and golden projections.
package harness
