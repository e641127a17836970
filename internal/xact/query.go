package xact

import (
	"fmt"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
)

// Action is the mutation an advise query describes.
type Action int

const (
	ActionCreate Action = iota + 1
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// ParseAction accepts the names printed by Action.String.
func ParseAction(s string) (Action, error) {
	switch s {
	case "create":
		return ActionCreate, nil
	case "update":
		return ActionUpdate, nil
	case "delete":
		return ActionDelete, nil
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// Flags modify how a query is applied.
type Flags uint32

const (
	// FlagReplace substitutes the stored message instead of merging into it.
	FlagReplace Flags = 1 << iota
	// FlagAsync marks a query submitted through an async member call.
	FlagAsync
)

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// Query describes one advised mutation. Keyspec and Message are owned by
// the query.
type Query struct {
	Action  Action
	Keyspec *keyspec.Keyspec
	Message *ir.Message
	Flags   Flags
}

// Clone returns a deep copy.
func (q Query) Clone() Query {
	return Query{
		Action:  q.Action,
		Keyspec: q.Keyspec.Clone(),
		Message: q.Message.Clone(),
		Flags:   q.Flags,
	}
}

func (q Query) String() string {
	return fmt.Sprintf("%s %s", q.Action, q.Keyspec)
}
