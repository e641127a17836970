package member

import (
	"context"
	"errors"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/xact"
)

// fragment is one object-sized piece of a published message, anchored at
// the registration's depth.
type fragment struct {
	ks  *keyspec.Keyspec
	msg *ir.Message
}

// Publish writes msg, anchored at ks, into reg regardless of depth.
//
// A message shallower than the registration is split into its children at
// the registration's depth, each written as its own object. A message
// deeper than the registration is wrapped into its ancestors up to the
// registration's depth and written once. A message at the same depth is
// written as is. Messages outside the registration's keyspec are ignored.
//
// Each write is an update that creates missing objects. Publish returns
// how many objects it wrote and stops at the first failure.
func (c *Client) Publish(ctx context.Context, x xact.Transaction, reg *Registration, ks *keyspec.Keyspec, msg *ir.Message, flags xact.Flags, opts ...OpOption) (int, error) {
	c.checkReg(reg)
	if ks == nil || msg == nil {
		panic("member: publish requires a keyspec and a message")
	}
	frags, err := c.reroot(reg, ks, msg)
	if err != nil {
		rec := c.newRecord(xact.ActionUpdate, x, reg, KeyRef{}, msg, flags, opts)
		return 0, c.fail(rec, err)
	}
	for i, f := range frags {
		rec := c.newRecord(xact.ActionUpdate, x, reg, AtKeyspec(f.ks), f.msg, flags, opts)
		if err := c.run(ctx, rec); err != nil {
			return i, err
		}
	}
	return len(frags), nil
}

// reroot cuts msg, anchored at ks, into fragments at reg's depth.
func (c *Client) reroot(reg *Registration, ks *keyspec.Keyspec, msg *ir.Message) ([]fragment, error) {
	ks = ks.Clone()
	adoptCategory(ks, reg.base.Category)

	do, dm := reg.base.Depth(), ks.Depth()
	common := min(do, dm)
	a, _ := ks.Truncate(common)
	b, _ := reg.base.Truncate(common)
	if !a.Matches(b) {
		return nil, nil
	}

	typ := reg.msgType
	if typ == "" {
		typ = msg.Type
	}
	body := msg.Body
	if body == nil {
		body = ir.Object{}
	}

	switch {
	case dm == do:
		return []fragment{{ks: ks, msg: &ir.Message{Type: typ, Body: body.Clone()}}}, nil

	case dm < do:
		children, err := keyspec.Children(ks, body, reg.base)
		if err != nil {
			return nil, rerootError(ks, err)
		}
		frags := make([]fragment, len(children))
		for i, ch := range children {
			frags[i] = fragment{ks: ch.Keyspec, msg: &ir.Message{Type: typ, Body: ch.Body.Clone()}}
		}
		c.logger.Debug("member: rerooted message", "from", ks.String(), "to", reg.base.String(), "fragments", len(frags))
		return frags, nil

	default:
		f, err := keyspec.Wrap(ks, body, do)
		if err != nil {
			return nil, rerootError(ks, err)
		}
		if !f.Keyspec.Matches(reg.base) {
			return nil, nil
		}
		return []fragment{{ks: f.Keyspec, msg: &ir.Message{Type: typ, Body: f.Body}}}, nil
	}
}

func rerootError(ks *keyspec.Keyspec, err error) *Error {
	code := CodeKeyAppend
	if errors.Is(err, keyspec.ErrWildcards) {
		code = CodeKeyWildcards
	}
	return &Error{Code: code, Message: "reroot message", Keyspec: ks.String(), Err: err}
}
