package member

import (
	"context"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/xact"
)

// CreateAsync defers Create onto the client's executor. Inputs are copied
// before it returns. Failures abort x, or are logged when x is nil, and
// are reported to the WithCallback callback.
func (c *Client) CreateAsync(ctx context.Context, x xact.Transaction, reg *Registration, ref KeyRef, msg *ir.Message, opts ...OpOption) error {
	return c.submit(ctx, c.newRecord(xact.ActionCreate, x, reg, ref, msg, xact.FlagAsync, opts))
}

// UpdateAsync defers Update onto the client's executor.
func (c *Client) UpdateAsync(ctx context.Context, x xact.Transaction, reg *Registration, ref KeyRef, msg *ir.Message, flags xact.Flags, opts ...OpOption) error {
	return c.submit(ctx, c.newRecord(xact.ActionUpdate, x, reg, ref, msg, flags|xact.FlagAsync, opts))
}

// DeleteAsync defers Delete onto the client's executor.
func (c *Client) DeleteAsync(ctx context.Context, x xact.Transaction, reg *Registration, ref KeyRef, msg *ir.Message, opts ...OpOption) error {
	return c.submit(ctx, c.newRecord(xact.ActionDelete, x, reg, ref, msg, xact.FlagAsync, opts))
}

func (c *Client) submit(ctx context.Context, rec *record) error {
	rec.async = true
	seq, err := c.exec.Submit(func() {
		_ = c.run(ctx, rec)
	})
	if err != nil {
		return &Error{Code: CodeInconsistent, Message: "defer " + rec.action.String(), Xact: rec.xactID(), Err: err}
	}
	c.logger.Debug("member: deferred", "action", rec.action.String(), "registration", rec.reg.String(), "seq", seq)
	return nil
}
