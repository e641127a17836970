package xact

import "errors"

// ErrFinished is returned when a query is added to a finished transaction.
var ErrFinished = errors.New("transaction already finished")

// Transaction is an in-flight distributed transaction as seen by a member.
type Transaction interface {
	// ID identifies the transaction; member overlays are keyed by it.
	ID() string

	// AddQuery appends an advised mutation. cb runs when the transaction
	// reaches a terminal status.
	AddQuery(q Query, cb Callback) error

	// Abort fails the transaction with err. Aborting a finished
	// transaction is a no-op.
	Abort(err error)

	// OnFinish registers fn to run once the transaction reaches a terminal
	// status, before query callbacks.
	OnFinish(fn func(Status))

	Status() Status
}

// Router starts transactions for mutations advised outside one.
type Router interface {
	Advise(q Query, cb Callback) (Transaction, error)
}

// IDGenerator produces transaction ids.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type IDGenerator interface {
	Generate() string
}
