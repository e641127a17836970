package member

import (
	"context"
	"fmt"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/xact"
)

// Create stores msg at the key ref resolves to under reg. An existing
// object at that key is updated instead. x may be nil; inside a
// transaction the object lives in x's overlay until x commits.
//
// A nil msg violates the caller contract and panics.
func (c *Client) Create(ctx context.Context, x xact.Transaction, reg *Registration, ref KeyRef, msg *ir.Message, opts ...OpOption) error {
	return c.run(ctx, c.newRecord(xact.ActionCreate, x, reg, ref, msg, 0, opts))
}

// Update merges msg into the object at ref, or replaces its message when
// flags has xact.FlagReplace. A missing object is created.
func (c *Client) Update(ctx context.Context, x xact.Transaction, reg *Registration, ref KeyRef, msg *ir.Message, flags xact.Flags, opts ...OpOption) error {
	return c.run(ctx, c.newRecord(xact.ActionUpdate, x, reg, ref, msg, flags, opts))
}

// Delete removes what ref addresses. Depending on the depth of the
// resolved keyspec relative to reg it removes one field of one object,
// one object, or every object under a prefix or wildcard. msg is advisory
// and may be nil.
func (c *Client) Delete(ctx context.Context, x xact.Transaction, reg *Registration, ref KeyRef, msg *ir.Message, opts ...OpOption) error {
	return c.run(ctx, c.newRecord(xact.ActionDelete, x, reg, ref, msg, 0, opts))
}

func (c *Client) create(ctx context.Context, rec *record) error {
	ks, key, err := c.resolveWrite(rec)
	if err != nil {
		return err
	}
	return c.createAt(ctx, rec, ks, key)
}

func (c *Client) update(ctx context.Context, rec *record) error {
	ks, key, err := c.resolveWrite(rec)
	if err != nil {
		return err
	}
	return c.updateAt(ctx, rec, ks, key)
}

// resolveWrite resolves the key of a create or update. Objects are stored
// only at the registration's depth and under its keyspec; deeper or
// foreign messages go through Publish.
func (c *Client) resolveWrite(rec *record) (*keyspec.Keyspec, keyspec.Key, error) {
	reg := rec.reg
	ks, key, err := c.resolver.Resolve(reg.base, rec.ref)
	if err != nil {
		return nil, "", err
	}
	if ks.Depth() != reg.Depth() {
		msg := fmt.Sprintf("depth %d does not match registration depth %d", ks.Depth(), reg.Depth())
		return nil, "", &Error{Code: CodeKeyAppend, Message: msg, Keyspec: ks.String(), Err: ErrInvalid}
	}
	if !ks.Matches(reg.base) {
		return nil, "", &Error{Code: CodeInvalidInput, Message: "outside registration " + reg.base.String(), Keyspec: ks.String(), Err: ErrInvalid}
	}
	return ks, key, nil
}

func (c *Client) createAt(ctx context.Context, rec *record, ks *keyspec.Keyspec, key keyspec.Key) error {
	reg := rec.reg
	if reg.shard != nil {
		return c.shardWrite(ctx, rec, ks, key)
	}
	if o, _ := c.lookup(rec.x, reg, key); o != nil {
		return c.updateAt(ctx, rec, ks, key)
	}

	obj := c.newObject(reg, ks, key, c.prepare(rec))
	if rec.x != nil {
		obj.flags = flagCreate
		c.overlayFor(rec.x).put(obj)
	} else {
		reg.table.put(obj)
		rec.onUndo(func() { reg.table.remove(key) })
	}
	return c.finalize(ctx, rec, obj, xact.ActionCreate)
}

func (c *Client) updateAt(ctx context.Context, rec *record, ks *keyspec.Keyspec, key keyspec.Key) error {
	reg := rec.reg
	if reg.shard != nil {
		return c.shardWrite(ctx, rec, ks, key)
	}
	obj, inOverlay := c.lookup(rec.x, reg, key)
	if obj == nil {
		return c.createAt(ctx, rec, ks, key)
	}
	if rec.x != nil && !inOverlay {
		obj = obj.shadow(flagUpdate)
		c.overlayFor(rec.x).put(obj)
	}
	if rec.x == nil {
		rec.onUndo(obj.restorer())
	}

	msg := c.prepare(rec)
	switch {
	case obj.deleteMarked():
		// Written again after a delete in the same transaction.
		obj.flags &^= flagDeleteMark
		obj.msg = msg
	case rec.flags.Has(xact.FlagReplace):
		obj.msg = msg
		obj.flags |= flagReplace
	default:
		obj.msg.Merge(msg)
	}
	return c.finalize(ctx, rec, obj, xact.ActionUpdate)
}

// finalize records the mutation in obj's audit trail and advises it.
// Deletes are advised without an audit entry.
func (c *Client) finalize(ctx context.Context, rec *record, obj *dataObject, action xact.Action) error {
	if action != xact.ActionDelete {
		err := obj.audit.Append(AuditEntry{Actor: c.actor, Action: action, Timestamp: c.now()})
		if err != nil {
			c.logger.Warn("member: audit entry dropped", "keyspec", obj.ks.String(), "action", action.String(), "error", err)
		}
	}
	return c.advise(ctx, rec, obj, action)
}

// Get returns the object at ref as seen from x (nil for the committed
// view). Delete-marked overlay entries read as not found.
func (c *Client) Get(ctx context.Context, x xact.Transaction, reg *Registration, ref KeyRef) (item *Item, err error) {
	c.checkReg(reg)
	ctx, span := c.startSpan(ctx, "get", reg, x)
	defer func() { endSpan(span, err) }()

	ks, key, err := c.resolver.Resolve(reg.base, ref)
	if err != nil {
		return nil, err
	}
	if reg.shard != nil {
		return c.shardGet(ctx, reg, ks, key)
	}
	obj, _ := c.lookup(x, reg, key)
	if obj == nil || obj.deleteMarked() {
		return nil, notFound(ks)
	}
	return obj.item(), nil
}
