// Package harness runs subscription scenarios against a real cache.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: item_author_update
//	description: "What this scenario validates"
//	document: ../documents/items.cue
//	key_fields:
//	  Author: [login]
//	records:
//	  - typename: Item
//	    fields: {id: 1, text: hello, author: {__ref: "Author:ada"}}
//	watch:
//	  from: Item:1
//	  fragment: ItemFields
//	  expect: {delivered: 1, complete: false}
//	steps:
//	  - write:
//	      - typename: Author
//	        fields: {login: ada, name: Ada}
//	    expect:
//	      delivered: 1
//	      complete: true
//	      data: {author: {name: Ada}}
//	      last_complete: 2
//	  - optimistic: {layer: edit, records: [...]}
//	  - remove_optimistic: edit
//	  - evict: Author:ada
//
// Every step names exactly one mutation and is followed by a broadcast
// drain, so each expect clause sees every delivery the step caused.
//
// # Expect Fields
//
//   - delivered: listener calls caused by the step
//   - complete: the current result's completeness
//   - data: subset match on the current result's data
//   - no_data: the current result carries no data
//   - missing: exact match on the missing tree ({} means none)
//   - last_complete: trace index of the last complete result, -1 for none
//
// # Deterministic Testing
//
// Each run uses a fresh in-memory SQLite store, subscription ids from
// testutil.SequentialIDGenerator, and the cache's logical clock starting
// at zero. The trace is rendered as canonical JSON so golden files are
// byte-stable.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/author.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, e := range result.Errors {
//	    log.Println(e)
//	}
package harness
