package member

import (
	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
)

type objectFlags uint8

const (
	flagCreate objectFlags = 1 << iota
	flagUpdate
	flagDeleteMark
	flagReplace
)

// dataObject is the stored unit. It belongs to exactly one table: a
// registration's committed table or one transaction's overlay.
type dataObject struct {
	key   keyspec.Key
	ks    *keyspec.Keyspec
	msg   *ir.Message
	reg   *Registration
	audit *AuditTrail
	flags objectFlags
}

func (o *dataObject) deleteMarked() bool {
	return o.flags&flagDeleteMark != 0
}

// shadow returns an overlay copy of o carrying only flags.
func (o *dataObject) shadow(flags objectFlags) *dataObject {
	return &dataObject{
		key:   o.key,
		ks:    o.ks.Clone(),
		msg:   o.msg.Clone(),
		reg:   o.reg,
		audit: o.audit.clone(),
		flags: flags,
	}
}

// restorer snapshots o's message, audit trail and flags, and returns a
// func that puts them back.
func (o *dataObject) restorer() func() {
	msg, audit, flags := o.msg.Clone(), o.audit.clone(), o.flags
	return func() {
		o.msg, o.audit, o.flags = msg, audit, flags
	}
}

func (o *dataObject) item() *Item {
	return &Item{
		Keyspec: o.ks.Clone(),
		Message: o.msg.Clone(),
		Audit:   o.audit.Entries(),
	}
}

// Item is a read-only snapshot of a stored object returned by Get and
// GetNext. It shares nothing with the store.
type Item struct {
	Keyspec *keyspec.Keyspec
	Message *ir.Message
	Audit   []AuditEntry
}
