// Package engine provides the execution primitives the member data layer
// runs on: a single-threaded FIFO task executor and a monotonic logical
// clock.
//
// Member operations never lock. Every registration and transaction is owned
// by one execution context, and the async variants of member operations only
// defer the same synchronous logic onto that context's Executor. The Clock
// stamps registration serials and executor tasks with strictly increasing
// values; wall-clock time is never used for ordering.
package engine
