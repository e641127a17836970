package member

import (
	"context"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/xact"
)

// Cursor is a restartable position for GetNext. It is bound either to a
// registration, iterating its committed objects, or to a transaction,
// iterating committed objects as the transaction sees them followed by
// the transaction's own creates.
type Cursor struct {
	pos  int
	reg  *Registration
	xact xact.Transaction
}

// NewCursor returns a cursor over reg's committed objects.
func NewCursor(reg *Registration) *Cursor {
	if reg == nil {
		panic("member: cursor needs a registration")
	}
	return &Cursor{reg: reg}
}

// NewXactCursor returns a cursor over the objects visible inside x.
func NewXactCursor(x xact.Transaction) *Cursor {
	if x == nil {
		panic("member: cursor needs a transaction")
	}
	return &Cursor{xact: x}
}

// Position is the index of the next candidate.
func (cur *Cursor) Position() int { return cur.pos }

// Reset restarts iteration from the first committed object.
func (cur *Cursor) Reset() { cur.pos = 0 }

// GetNext returns the next object of reg after cur's position. Committed
// objects come first in insertion order, then, for a transaction-bound
// cursor, the overlay's own entries. Delete-marked entries and objects
// whose message type differs from reg's declared type are skipped; a
// committed object shadowed by an overlay update yields the overlay
// version.
//
// Exhaustion returns a not-found error and resets the cursor to 0.
// Using a registration-bound cursor with another registration panics.
func (c *Client) GetNext(ctx context.Context, reg *Registration, cur *Cursor) (item *Item, err error) {
	c.checkReg(reg)
	if cur == nil {
		panic("member: nil cursor")
	}
	if cur.reg != nil && cur.reg != reg {
		panic("member: cursor is bound to " + cur.reg.String())
	}
	ctx, span := c.startSpan(ctx, "get_next", reg, cur.xact)
	defer func() { endSpan(span, err) }()

	if reg.shard != nil {
		return c.shardNext(ctx, reg, cur)
	}

	var ov *overlay
	if cur.xact != nil {
		ov = c.overlays[cur.xact.ID()]
	}
	var own *table
	if ov != nil {
		own = ov.table(reg)
	}

	committed := reg.table.len()
	total := committed
	if own != nil {
		total += own.len()
	}

	for i := cur.pos; i < total; i++ {
		var obj *dataObject
		if i < committed {
			obj = reg.table.at(i)
			if own != nil {
				if sh := own.get(obj.key); sh != nil {
					obj = sh
				}
			}
		} else {
			obj = own.at(i - committed)
			if reg.table.get(obj.key) != nil {
				// Already visited in the committed pass.
				continue
			}
		}
		if obj.deleteMarked() || !reg.matchesType(obj) {
			continue
		}
		cur.pos = i + 1
		return obj.item(), nil
	}

	cur.pos = 0
	return nil, &Error{Code: CodeNotFound, Message: "cursor exhausted", Keyspec: reg.base.String(), Err: ErrNotFound}
}
