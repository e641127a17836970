package member

import (
	"context"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/xact"
)

// delete dispatches on the depth of the query keyspec q against the
// registration depth:
//
//	depth(q) > depth(reg)                 remove one field of one object
//	depth(q) < depth(reg), or wildcarded  remove every object under q
//	otherwise                             remove the object at q
func (c *Client) delete(ctx context.Context, rec *record) error {
	q, err := c.resolver.Derive(rec.reg.base, rec.ref)
	if err != nil {
		return err
	}
	di, do := q.Depth(), rec.reg.base.Depth()
	switch {
	case di > do:
		return c.deleteField(ctx, rec, q)
	case di < do || q.HasWildcards():
		return c.deleteBulk(ctx, rec, q)
	default:
		return c.deleteExact(ctx, rec, q)
	}
}

// deleteField removes the sub-field q addresses below its owning object.
// Advised as an update of the owner.
func (c *Client) deleteField(ctx context.Context, rec *record, q *keyspec.Keyspec) error {
	reg := rec.reg
	do := reg.base.Depth()
	owner, err := q.Truncate(do)
	if err != nil {
		return newError(CodeKeyAppend, err, "truncate %s", q)
	}
	key, err := concreteKey(owner)
	if err != nil {
		return err
	}
	if reg.shard != nil {
		return c.shardDeleteField(ctx, rec, q, owner, key)
	}

	obj, inOverlay := c.lookup(rec.x, reg, key)
	if obj == nil || obj.deleteMarked() {
		return notFound(owner)
	}
	m := obj.msg.Clone()
	if !keyspec.DeleteAt(m.Body, q.Entries[do:]) {
		return notFound(q)
	}
	if rec.x != nil && !inOverlay {
		obj = obj.shadow(flagUpdate)
		c.overlayFor(rec.x).put(obj)
	}
	if rec.x == nil {
		rec.onUndo(obj.restorer())
	}
	obj.msg = m
	return c.finalize(ctx, rec, obj, xact.ActionUpdate)
}

// deleteBulk removes every committed object under q. Inside a transaction
// each one is shadowed by a delete-marked overlay entry, and overlay
// creates under q that were never committed are purged.
func (c *Client) deleteBulk(ctx context.Context, rec *record, q *keyspec.Keyspec) error {
	reg := rec.reg
	if reg.shard != nil {
		return c.shardDeleteBulk(ctx, rec, q)
	}

	var victims []*dataObject
	for _, o := range reg.table.objects() {
		if o.ks.IsSubKeyspecOf(q) {
			victims = append(victims, o)
		}
	}

	if rec.x == nil {
		for _, o := range victims {
			removeCommitted(rec, o)
			if err := c.finalize(ctx, rec, o, xact.ActionDelete); err != nil {
				return err
			}
		}
		c.logger.Debug("member: bulk delete", "query", q.String(), "removed", len(victims))
		return nil
	}

	ov := c.overlayFor(rec.x)
	marked := 0
	for _, o := range victims {
		sh := ov.get(reg, o.key)
		switch {
		case sh == nil:
			sh = o.shadow(flagDeleteMark)
			ov.put(sh)
		case sh.deleteMarked():
			continue
		default:
			sh.flags |= flagDeleteMark
		}
		marked++
		if err := c.finalize(ctx, rec, sh, xact.ActionDelete); err != nil {
			return err
		}
	}

	purged := 0
	if t := ov.table(reg); t != nil {
		for _, o := range t.objects() {
			if reg.table.get(o.key) != nil || !o.ks.IsSubKeyspecOf(q) {
				continue
			}
			ov.remove(reg, o.key)
			purged++
			if o.deleteMarked() {
				continue
			}
			if err := c.finalize(ctx, rec, o, xact.ActionDelete); err != nil {
				return err
			}
		}
	}
	c.logger.Debug("member: bulk delete", "query", q.String(), "xact", rec.xactID(), "marked", marked, "purged", purged)
	return nil
}

// deleteExact removes the object at q.
func (c *Client) deleteExact(ctx context.Context, rec *record, q *keyspec.Keyspec) error {
	reg := rec.reg
	key, err := concreteKey(q)
	if err != nil {
		return err
	}
	if reg.shard != nil {
		return c.shardDeleteExact(ctx, rec, q, key)
	}

	if rec.x == nil {
		obj := reg.table.get(key)
		if obj == nil {
			return notFound(q)
		}
		removeCommitted(rec, obj)
		return c.finalize(ctx, rec, obj, xact.ActionDelete)
	}

	obj, inOverlay := c.lookup(rec.x, reg, key)
	if obj == nil || obj.deleteMarked() {
		return notFound(q)
	}
	if inOverlay {
		obj.flags |= flagDeleteMark
	} else {
		obj = obj.shadow(flagDeleteMark)
		c.overlayFor(rec.x).put(obj)
	}
	return c.finalize(ctx, rec, obj, xact.ActionDelete)
}

// removeCommitted takes o out of its committed table. The removal is
// reverted, position included, if advising it fails.
func removeCommitted(rec *record, o *dataObject) {
	t := o.reg.table
	i := t.indexOf(o.key)
	t.remove(o.key)
	rec.onUndo(func() { t.insert(i, o) })
}
