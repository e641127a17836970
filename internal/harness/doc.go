// Package harness runs YAML scenarios against a member client and checks
// the outcome.
//
// # Scenario Format
//
//	name: car_lifecycle
//	description: "What this scenario validates"
//	schema: schema            # optional CUE message declarations
//	kv: memory                # sqlite or none
//	registrations:
//	  - name: cars
//	    keyspec: "/car[brand=*]"
//	    category: config
//	    type: Car
//	    flags: [publisher, cache]
//	    shard: false
//	steps:
//	  - op: begin
//	    xact: t1
//	  - op: create
//	    xact: t1
//	    reg: cars
//	    at: "/car[brand='Toyota']"
//	    message: {models: [Corolla]}
//	  - op: commit
//	    xact: t1
//	  - op: get
//	    reg: cars
//	    at: "/car[brand='Toyota']"
//	    expect:
//	      message: {models: [Corolla]}
//	assertions:
//	  - type: count
//	    reg: cars
//	    count: 1
//
// Steps are begin, commit, abort, create, update, delete, get, publish,
// list and drain. A step without an expect clause must succeed.
//
// # Assertion Types
//
//   - object: the key holds a message matching a field subset
//   - absent: the key reads as not found
//   - count: a cursor over the registration yields N objects
//   - serial: the registration's serial equals N
//   - kv: the key is (or is not) mirrored
//   - audit: the object's audit trail lists these actions
//   - advised: the router accepted queries with these actions, in order
//
// # Deterministic Testing
//
// Each run gets a fresh client, router and backends. Transaction ids count
// up from x-1 and audit timestamps come from testutil.DeterministicClock,
// so the trace is stable and can be compared with a golden file:
//
//	go test ./internal/harness -update
package harness
