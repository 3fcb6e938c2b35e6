// Package harness runs named scenarios — a setup phase assumed to
// succeed, followed by a flow of dispatched tool calls — against a
// real store, then lets callers assert on the resulting envelopes
// directly or via a golden-file snapshot.
//
// # Scenario format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	setup:
//	  - tool: commit_index
//	    args: { message: "seed" }
//	steps:
//	  - tool: retrieve
//	    args: { query: "hello", k: 5 }
//
// Setup calls are assumed to succeed; a setup failure aborts the run.
// Step calls are recorded into an Outcome whether they succeed or
// fail, so a scenario can assert on an expected error code.
package harness
