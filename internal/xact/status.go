package xact

import "fmt"

// Status is the lifecycle state of a transaction.
type Status int

const (
	StatusRunning Status = iota
	StatusCommitted
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusCommitted:
		return "committed"
	case StatusAborted:
		return "aborted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether the transaction has finished.
func (s Status) Terminal() bool {
	return s == StatusCommitted || s == StatusAborted
}

// Result is delivered to a query's callback when its transaction finishes.
type Result struct {
	Xact   string
	Status Status
	// Err is the abort cause, nil on commit.
	Err error
}

// Callback receives the terminal result of an advised query.
type Callback func(Result)
