// Package member implements the member side of the distributed
// transactional data service: the store every client embeds to hold,
// mutate and iterate the objects it publishes or caches.
//
// A Client owns Registrations. Each registration binds a base keyspec and
// a declared message type to a committed table of objects, kept in
// insertion order and keyed by the binary form of each object's keyspec.
// Mutations made inside a transaction land in that transaction's overlay
// instead, which shadows the committed tables for reads made inside the
// same transaction and is folded in when the transaction commits.
//
// Operations address objects with a KeyRef (a path entry, a minikey, an
// absolute keyspec, an xpath, or nothing) resolved against the
// registration's base keyspec. Delete compares the resolved depth with the
// registration depth to remove one field, one object, or a whole subtree.
// Publish reroots a message anchored at another depth onto the
// registration's depth.
//
// Every mutation is advised to the transaction layer through an
// xact.Router or the caller's xact.Transaction. Failures inside a
// transaction abort it; failures outside are logged. Both are also
// returned. Contract violations, such as a nil message on create or a key
// reference with two sources, panic.
//
// The package does no locking. A Client and everything it owns belongs to
// one execution context; the *Async variants defer work onto that
// context's engine.Executor.
package member
