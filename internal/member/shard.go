package member

import (
	"context"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/xact"
)

// A registration with a shard keeps no committed table and no overlay:
// every read and write goes straight to the shard, while mutations are
// still advised into the caller's transaction. Shard objects carry no
// audit trail.

func shardError(op string, ks *keyspec.Keyspec, err error) *Error {
	return &Error{Code: CodeInconsistent, Message: "shard " + op, Keyspec: ks.String(), Err: err}
}

func (c *Client) shardWrite(ctx context.Context, rec *record, ks *keyspec.Keyspec, key keyspec.Key) error {
	reg := rec.reg
	existing, err := reg.shard.Get(ctx, key)
	if err != nil {
		return shardError("get", ks, err)
	}

	msg := c.prepare(rec)
	action := xact.ActionCreate
	if existing != nil {
		action = xact.ActionUpdate
		if !rec.flags.Has(xact.FlagReplace) && existing.Message != nil {
			merged := existing.Message.Clone()
			merged.Merge(msg)
			msg = merged
		}
	}
	if err := reg.shard.Put(ctx, key, &ShardRecord{Keyspec: ks, Message: msg}); err != nil {
		return shardError("put", ks, err)
	}
	c.restoreShard(ctx, rec, key, existing)
	return c.advise(ctx, rec, c.newObject(reg, ks, key, msg), action)
}

// restoreShard sets the record's undo to put prev back at key, or to
// remove key when prev is nil.
func (c *Client) restoreShard(ctx context.Context, rec *record, key keyspec.Key, prev *ShardRecord) {
	reg := rec.reg
	rec.onUndo(func() {
		var err error
		if prev == nil {
			_, err = reg.shard.Delete(ctx, key)
		} else {
			err = reg.shard.Put(ctx, key, prev)
		}
		if err != nil {
			c.logger.Error("member: shard revert failed", "registration", reg.String(), "error", err)
		}
	})
}

func (c *Client) shardGet(ctx context.Context, reg *Registration, ks *keyspec.Keyspec, key keyspec.Key) (*Item, error) {
	rec, err := reg.shard.Get(ctx, key)
	if err != nil {
		return nil, shardError("get", ks, err)
	}
	if rec == nil {
		return nil, notFound(ks)
	}
	return &Item{Keyspec: rec.Keyspec.Clone(), Message: rec.Message.Clone()}, nil
}

func (c *Client) shardDeleteField(ctx context.Context, rec *record, q, owner *keyspec.Keyspec, key keyspec.Key) error {
	reg := rec.reg
	existing, err := reg.shard.Get(ctx, key)
	if err != nil {
		return shardError("get", owner, err)
	}
	if existing == nil {
		return notFound(owner)
	}
	m := existing.Message.Clone()
	if !keyspec.DeleteAt(m.Body, q.Entries[reg.base.Depth():]) {
		return notFound(q)
	}
	if err := reg.shard.Put(ctx, key, &ShardRecord{Keyspec: existing.Keyspec, Message: m}); err != nil {
		return shardError("put", owner, err)
	}
	c.restoreShard(ctx, rec, key, existing)
	return c.advise(ctx, rec, c.newObject(reg, existing.Keyspec, key, m), xact.ActionUpdate)
}

func (c *Client) shardDeleteExact(ctx context.Context, rec *record, q *keyspec.Keyspec, key keyspec.Key) error {
	reg := rec.reg
	existing, err := reg.shard.Get(ctx, key)
	if err != nil {
		return shardError("get", q, err)
	}
	if existing == nil {
		return notFound(q)
	}
	if _, err := reg.shard.Delete(ctx, key); err != nil {
		return shardError("delete", q, err)
	}
	c.restoreShard(ctx, rec, key, existing)
	return c.advise(ctx, rec, c.newObject(reg, existing.Keyspec, key, existing.Message), xact.ActionDelete)
}

func (c *Client) shardDeleteBulk(ctx context.Context, rec *record, q *keyspec.Keyspec) error {
	reg := rec.reg
	type victim struct {
		key keyspec.Key
		rec *ShardRecord
	}
	var victims []victim
	err := reg.shard.Scan(ctx, func(k keyspec.Key, r *ShardRecord) error {
		if r.Keyspec.IsSubKeyspecOf(q) {
			victims = append(victims, victim{key: k, rec: r})
		}
		return nil
	})
	if err != nil {
		return shardError("scan", q, err)
	}
	for _, v := range victims {
		if _, err := reg.shard.Delete(ctx, v.key); err != nil {
			return shardError("delete", v.rec.Keyspec, err)
		}
		c.restoreShard(ctx, rec, v.key, v.rec)
		if err := c.advise(ctx, rec, c.newObject(reg, v.rec.Keyspec, v.key, v.rec.Message), xact.ActionDelete); err != nil {
			return err
		}
	}
	return nil
}

// shardNext walks the shard in scan order. The cursor position indexes
// that order.
func (c *Client) shardNext(ctx context.Context, reg *Registration, cur *Cursor) (*Item, error) {
	var recs []*ShardRecord
	err := reg.shard.Scan(ctx, func(_ keyspec.Key, r *ShardRecord) error {
		recs = append(recs, r)
		return nil
	})
	if err != nil {
		return nil, shardError("scan", reg.base, err)
	}
	for i := cur.pos; i < len(recs); i++ {
		r := recs[i]
		if reg.msgType != "" && r.Message != nil && r.Message.Type != reg.msgType {
			continue
		}
		cur.pos = i + 1
		return &Item{Keyspec: r.Keyspec.Clone(), Message: r.Message.Clone()}, nil
	}
	cur.pos = 0
	return nil, &Error{Code: CodeNotFound, Message: "cursor exhausted", Keyspec: reg.base.String(), Err: ErrNotFound}
}
