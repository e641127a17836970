package member

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/engine"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/xact"
)

// TracerName names the tracer used when none is configured.
const TracerName = "dts/member"

// Callback receives the outcome of an advised mutation once its
// transaction finishes. Async operations that fail before advising also
// report through it.
type Callback func(Status, error)

// Client is the member side of the data service: it owns registrations,
// their committed tables and the overlays of in-flight transactions.
//
// A Client is not safe for concurrent use. All calls, including the
// closures run by its executor, must come from the one execution context
// that owns it.
type Client struct {
	actor       string
	router      xact.Router
	resolver    Resolver
	schema      Schema
	exec        *engine.Executor
	logger      *slog.Logger
	tracer      trace.Tracer
	now         func() time.Time
	auditCap    int
	auditPolicy AuditPolicy

	nextReg  int
	regs     []*Registration
	overlays map[string]*overlay
}

// Option configures a Client.
type Option func(*Client)

// WithActor sets the actor recorded in audit entries.
func WithActor(name string) Option {
	return func(c *Client) { c.actor = name }
}

// WithRouter sets the router that starts transactions for mutations made
// outside one. The default is an auto-committing xact.Local.
func WithRouter(r xact.Router) Option {
	return func(c *Client) { c.router = r }
}

// WithSchema enables unknown-field stripping.
func WithSchema(s Schema) Option {
	return func(c *Client) { c.schema = s }
}

// WithXPathResolver replaces the xpath parser used by AtXPath.
func WithXPathResolver(xr XPathResolver) Option {
	return func(c *Client) { c.resolver.XPath = xr }
}

// WithExecutor sets the executor async operations are deferred onto.
func WithExecutor(x *engine.Executor) Option {
	return func(c *Client) { c.exec = x }
}

// WithLogger sets the client's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTracer sets the tracer for operation spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithNow sets the audit timestamp source.
func WithNow(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithAudit sets the audit ring capacity and full-ring policy.
func WithAudit(capacity int, policy AuditPolicy) Option {
	return func(c *Client) {
		c.auditCap = capacity
		c.auditPolicy = policy
	}
}

// NewClient creates a client with no registrations.
func NewClient(opts ...Option) *Client {
	c := &Client{
		actor:       "member",
		resolver:    NewResolver(),
		logger:      slog.Default(),
		now:         time.Now,
		auditCap:    DefaultAuditCapacity,
		auditPolicy: AuditReject,
		overlays:    make(map[string]*overlay),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.router == nil {
		c.router = xact.NewLocal(xact.WithLogger(c.logger))
	}
	if c.exec == nil {
		c.exec = engine.NewExecutor(engine.WithLogger(c.logger))
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(TracerName)
	}
	return c
}

// Executor returns the executor async operations run on.
func (c *Client) Executor() *engine.Executor { return c.exec }

// Register binds the client to the objects under base. The keyspec's
// category becomes the registration's category and must be concrete.
func (c *Client) Register(base *keyspec.Keyspec, msgType string, flags RegFlags, opts ...RegOption) (*Registration, error) {
	if base == nil {
		return nil, newError(CodeInvalidInput, ErrInvalid, "register: nil keyspec")
	}
	if base.Category == keyspec.CategoryAny {
		return nil, &Error{Code: CodeInvalidInput, Message: "register: keyspec needs a category", Keyspec: base.String(), Err: ErrInvalid}
	}
	c.nextReg++
	reg := &Registration{
		id:      c.nextReg,
		client:  c,
		base:    base.Clone(),
		flags:   flags,
		msgType: msgType,
		table:   newTable(),
		serial:  engine.NewClock(),
	}
	for _, opt := range opts {
		opt(reg)
	}
	c.regs = append(c.regs, reg)
	c.logger.Debug("member: registered", "registration", reg.String(), "type", msgType, "category", base.Category.String())
	return reg, nil
}

// Deregister releases reg's committed objects and every overlay entry it
// owns. The registration cannot be used afterwards.
func (c *Client) Deregister(reg *Registration) {
	c.checkReg(reg)
	if reg.closed {
		return
	}
	reg.closed = true
	released := reg.table.len()
	reg.table = newTable()
	for _, ov := range c.overlays {
		ov.drop(reg)
	}
	for i, r := range c.regs {
		if r == reg {
			c.regs = append(c.regs[:i], c.regs[i+1:]...)
			break
		}
	}
	c.logger.Debug("member: deregistered", "registration", reg.String(), "released", released)
}

// Registrations returns the live registrations in registration order.
func (c *Client) Registrations() []*Registration {
	return append([]*Registration(nil), c.regs...)
}

// OverlayLen returns the number of entries in a transaction's overlay.
func (c *Client) OverlayLen(xactID string) int {
	ov := c.overlays[xactID]
	if ov == nil {
		return 0
	}
	return ov.len()
}

func (c *Client) checkReg(reg *Registration) {
	if reg == nil {
		panic("member: nil registration")
	}
	if reg.client != c {
		panic(fmt.Sprintf("member: %s belongs to another client", reg))
	}
}

// OpOption configures a single operation.
type OpOption func(*record)

// WithCallback reports the advise outcome to cb.
func WithCallback(cb Callback) OpOption {
	return func(r *record) { r.cb = cb }
}

// record is the self-contained input of one operation. It owns copies of
// the key reference and message so it can run now or later on the
// executor.
type record struct {
	action xact.Action
	x      xact.Transaction
	reg    *Registration
	ref    KeyRef
	msg    *ir.Message
	flags  xact.Flags
	cb     Callback
	async  bool

	// undo reverts the pending mutation of a committed table or shard.
	undo func()
}

func (c *Client) newRecord(action xact.Action, x xact.Transaction, reg *Registration, ref KeyRef, msg *ir.Message, flags xact.Flags, opts []OpOption) *record {
	c.checkReg(reg)
	if msg == nil && action != xact.ActionDelete {
		panic("member: " + action.String() + " requires a message")
	}
	rec := &record{
		action: action,
		x:      x,
		reg:    reg,
		ref:    ref.clone(),
		msg:    msg.Clone(),
		flags:  flags,
	}
	for _, opt := range opts {
		opt(rec)
	}
	return rec
}

// onUndo sets the revert for the mutation about to be advised.
func (r *record) onUndo(fn func()) { r.undo = fn }

func (r *record) rollback() {
	if r.undo != nil {
		r.undo()
		r.undo = nil
	}
}

func (r *record) xactID() string {
	if r.x == nil {
		return ""
	}
	return r.x.ID()
}

// run executes rec and routes any failure: inside a transaction the
// transaction is aborted with it, outside it is logged.
func (c *Client) run(ctx context.Context, rec *record) (err error) {
	ctx, span := c.startSpan(ctx, rec.action.String(), rec.reg, rec.x)
	defer func() { endSpan(span, err) }()

	if rec.reg.closed {
		err = &Error{Code: CodeInvalidInput, Message: "registration closed", Keyspec: rec.reg.base.String(), Err: ErrInvalid}
		return c.fail(rec, err)
	}
	if rec.x != nil && rec.x.Status().Terminal() {
		err = &Error{Code: CodeInconsistent, Message: "transaction " + rec.x.Status().String(), Keyspec: rec.reg.base.String(), Err: xact.ErrFinished}
		return c.fail(rec, err)
	}

	switch rec.action {
	case xact.ActionCreate:
		err = c.create(ctx, rec)
	case xact.ActionUpdate:
		err = c.update(ctx, rec)
	case xact.ActionDelete:
		err = c.delete(ctx, rec)
	default:
		panic("member: unknown action " + rec.action.String())
	}
	if err != nil {
		return c.fail(rec, err)
	}
	return nil
}

func (c *Client) fail(rec *record, err error) error {
	if me, ok := err.(*Error); ok && me.Xact == "" {
		me.Xact = rec.xactID()
	}
	switch {
	case rec.x != nil && !rec.x.Status().Terminal():
		c.logger.Info("member: aborting transaction", "xact", rec.xactID(), "action", rec.action.String(), "error", err)
		rec.x.Abort(err)
	case rec.x != nil:
		c.logger.Warn("member: operation on finished transaction", "xact", rec.xactID(), "action", rec.action.String(), "error", err)
	default:
		c.logger.Error("member: operation failed", "action", rec.action.String(), "registration", rec.reg.String(), "error", err)
	}
	if rec.async && rec.cb != nil {
		rec.cb(StatusOf(err), err)
	}
	return err
}

// lookup finds key for reg, preferring x's overlay over the committed
// table. inOverlay reports where the object was found.
func (c *Client) lookup(x xact.Transaction, reg *Registration, key keyspec.Key) (obj *dataObject, inOverlay bool) {
	if x != nil {
		if ov := c.overlays[x.ID()]; ov != nil {
			if o := ov.get(reg, key); o != nil {
				return o, true
			}
		}
	}
	return reg.table.get(key), false
}

// overlayFor returns x's overlay, creating it on first use. The overlay is
// folded into the committed tables when x commits and dropped when it
// aborts.
func (c *Client) overlayFor(x xact.Transaction) *overlay {
	id := x.ID()
	if ov := c.overlays[id]; ov != nil {
		return ov
	}
	ov := newOverlay(id)
	c.overlays[id] = ov
	x.OnFinish(func(s xact.Status) {
		if s == xact.StatusCommitted {
			c.CommitOverlay(context.Background(), id)
		} else {
			c.AbortOverlay(id)
		}
	})
	return ov
}

// prepare returns rec's message ready to store: typed with the
// registration's declared type when it has none, and stripped of unknown
// fields.
func (c *Client) prepare(rec *record) *ir.Message {
	m := rec.msg
	if m.Type == "" {
		m.Type = rec.reg.msgType
	}
	if m.Body == nil {
		m.Body = ir.Object{}
	}
	if c.schema != nil {
		if stripped := c.schema.Strip(m); len(stripped) > 0 {
			c.logger.Warn("member: stripped unknown fields", "type", m.Type, "fields", stripped)
		}
	}
	return m
}

func (c *Client) newObject(reg *Registration, ks *keyspec.Keyspec, key keyspec.Key, msg *ir.Message) *dataObject {
	return &dataObject{
		key:   key,
		ks:    ks,
		msg:   msg,
		reg:   reg,
		audit: NewAuditTrail(c.auditCap, c.auditPolicy),
	}
}

func notFound(ks *keyspec.Keyspec) *Error {
	return &Error{Code: CodeNotFound, Message: "no object", Keyspec: ks.String(), Err: ErrNotFound}
}
