package member

import (
	"context"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/xact"
)

// advise tells the transaction layer about a mutation of obj. Inside a
// transaction the query is appended to it; otherwise the router starts
// one. If neither accepts the query the record's pending undo runs. When the transaction finishes the registration serial advances,
// the caller's callback runs and, for a write made outside any
// transaction, the KV mirror is updated.
func (c *Client) advise(ctx context.Context, rec *record, obj *dataObject, action xact.Action) error {
	reg := obj.reg
	q := xact.Query{
		Action:  action,
		Keyspec: obj.ks.Clone(),
		Message: obj.msg.Clone(),
		Flags:   rec.flags,
	}
	inXact := rec.x != nil
	key := obj.key
	cb := rec.cb

	done := func(res xact.Result) {
		serial := reg.serial.Next()
		if !inXact && res.Status == xact.StatusCommitted {
			c.mirror(ctx, reg, action == xact.ActionDelete, key, q.Message)
		}
		c.logger.Debug("member: advise finished",
			"xact", res.Xact,
			"action", action.String(),
			"keyspec", q.Keyspec.String(),
			"status", res.Status.String(),
			"serial", serial,
		)
		if cb != nil {
			cb(statusOfResult(res), res.Err)
		}
	}

	if inXact {
		if err := rec.x.AddQuery(q, done); err != nil {
			rec.rollback()
			return &Error{Code: CodeInconsistent, Message: "append advise query", Keyspec: q.Keyspec.String(), Err: err}
		}
		rec.undo = nil
		return nil
	}
	if _, err := c.router.Advise(q, done); err != nil {
		rec.rollback()
		return &Error{Code: CodeInconsistent, Message: "start advise transaction", Keyspec: q.Keyspec.String(), Err: err}
	}
	rec.undo = nil
	return nil
}

func statusOfResult(res xact.Result) Status {
	if res.Status == xact.StatusCommitted {
		return StatusSuccess
	}
	return StatusFailure
}

// mirror copies a committed write or removal to the registration's KV
// backend. Mirror failures are logged; the committed table stays
// authoritative.
func (c *Client) mirror(ctx context.Context, reg *Registration, remove bool, key keyspec.Key, msg *ir.Message) {
	if reg.kv == nil || !reg.flags.mirrors() || reg.closed {
		return
	}
	var err error
	if remove {
		err = reg.kv.Delete(ctx, key)
	} else {
		var b []byte
		b, err = msg.Canonical()
		if err == nil {
			err = reg.kv.Put(ctx, key, b)
		}
	}
	if err != nil {
		c.logger.Error("member: kv mirror failed", "registration", reg.String(), "remove", remove, "error", err)
	}
}

// CommitOverlay folds a transaction's overlay into the committed tables:
// delete-marked entries remove their committed object, every other entry
// replaces or joins it. It returns the number of committed changes.
//
// Overlays are committed automatically when their transaction reports
// StatusCommitted; the method is exported for commit steps that drive
// transactions some other way.
func (c *Client) CommitOverlay(ctx context.Context, xactID string) int {
	ov := c.overlays[xactID]
	if ov == nil {
		return 0
	}
	delete(c.overlays, xactID)

	n := 0
	for _, reg := range ov.regs {
		if reg.closed {
			continue
		}
		for _, o := range ov.tables[reg].objects() {
			if o.deleteMarked() {
				if reg.table.remove(o.key) {
					c.mirror(ctx, reg, true, o.key, nil)
					n++
				}
				continue
			}
			o.flags &^= flagCreate | flagUpdate | flagReplace
			reg.table.put(o)
			c.mirror(ctx, reg, false, o.key, o.msg)
			n++
		}
	}
	c.logger.Debug("member: overlay committed", "xact", xactID, "changes", n)
	return n
}

// AbortOverlay discards a transaction's overlay.
func (c *Client) AbortOverlay(xactID string) {
	ov := c.overlays[xactID]
	if ov == nil {
		return
	}
	delete(c.overlays, xactID)
	c.logger.Debug("member: overlay discarded", "xact", xactID, "entries", ov.len())
}
