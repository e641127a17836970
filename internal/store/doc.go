// Package store provides SQLite-backed durable backends for member
// registrations.
//
// The store holds two tables:
//   - kv_entries: the write-through KV mirror of committed objects, one
//     namespace per registration
//   - shard_records: objects of registrations that keep their table in a
//     shard instead of in memory
//
// # Critical Patterns
//
// Keys are the binary keyspec encoding, so one concrete keyspec maps to
// exactly one row per namespace or shard.
//
// Bodies are stored as RFC 8785 canonical JSON. A value written and read
// back is byte-identical.
//
// Scans are deterministic: ORDER BY seq ASC, where seq is assigned on
// first insert and kept across rewrites.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout: Wait for locks, 5 seconds unless WithBusyTimeout
//   - foreign_keys=ON: Enforce referential integrity
package store
