package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/engine"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/kvcache"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/member"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/schema"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/store"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/testutil"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/xact"
)

// errScenarioAbort is the cause passed to transactions aborted by an
// abort step.
var errScenarioAbort = errors.New("aborted by scenario")

// Option configures a run.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	tracer     trace.Tracer
	actor      string
	audit      *AuditSpec
	kv         string
	ttl        time.Duration
	kvStore    *store.Store
	shardStore *store.Store
}

// WithLogger routes client and router logs to l. Runs are silent by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTracer records a span per client operation.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithActor sets the audit actor. The scenario name is used otherwise.
func WithActor(name string) Option {
	return func(o *options) { o.actor = name }
}

// WithAudit sets the audit ring for scenarios that do not declare one.
func WithAudit(capacity int, policy string) Option {
	return func(o *options) { o.audit = &AuditSpec{Capacity: capacity, Policy: policy} }
}

// WithKVBackend sets the mirror backend for scenarios that do not declare
// one: "none", "memory" or "sqlite". ttl expires memory entries.
func WithKVBackend(backend string, ttl time.Duration) Option {
	return func(o *options) {
		o.kv = backend
		o.ttl = ttl
	}
}

// WithKVStore mirrors into st instead of a private in-memory database.
// The caller owns st.
func WithKVStore(st *store.Store) Option {
	return func(o *options) { o.kvStore = st }
}

// WithShardStore keeps shard registrations in st. The caller owns st.
func WithShardStore(st *store.Store) Option {
	return func(o *options) { o.shardStore = st }
}

// mirror is a KV backend the harness can also read back.
type mirror interface {
	member.KV
	lookup(ctx context.Context, key keyspec.Key) ([]byte, bool, error)
}

type cacheMirror struct{ *kvcache.Cache }

func (m cacheMirror) lookup(ctx context.Context, key keyspec.Key) ([]byte, bool, error) {
	b, ok := m.Get(ctx, key)
	return b, ok, nil
}

type storeMirror struct{ *store.KV }

func (m storeMirror) lookup(ctx context.Context, key keyspec.Key) ([]byte, bool, error) {
	return m.Get(ctx, key)
}

// Harness runs one scenario against a fresh client. Transaction ids come
// from a counting generator and audit timestamps from a deterministic
// clock, so traces are identical across runs.
type Harness struct {
	ctx    context.Context
	client *member.Client
	router *xact.Local
	owned  *store.Store
	shards *store.Store
	kv     mirror
	seq    *engine.Clock
	result *Result

	regs    map[string]*member.Registration
	xacts   map[string]*xact.LocalXact
	names   map[string]string
	journal int
}

// Run executes s and evaluates its assertions. The returned error reports
// a scenario the harness could not execute; failed expectations are
// recorded in the result instead.
func Run(s *Scenario, opts ...Option) (res *Result, err error) {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	h, err := newHarness(s, o)
	if err != nil {
		return nil, fmt.Errorf("failed to set up scenario: %w", err)
	}
	defer h.close()

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("scenario %s: %v", s.Name, r)
		}
	}()

	for i, st := range s.Steps {
		if err := h.step(i, st); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for _, msg := range EvaluateAssertions(h, s.Assertions) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func newHarness(s *Scenario, o options) (*Harness, error) {
	h := &Harness{
		ctx:    context.Background(),
		seq:    engine.NewClock(),
		result: NewResult(),
		regs:   make(map[string]*member.Registration),
		xacts:  make(map[string]*xact.LocalXact),
		names:  make(map[string]string),
	}
	h.router = xact.NewLocal(
		xact.WithIDGenerator(xact.NewSequenceGenerator("x")),
		xact.WithLogger(o.logger),
	)

	clientOpts := []member.Option{
		member.WithRouter(h.router),
		member.WithLogger(o.logger),
		member.WithNow(testutil.NewDeterministicClock(0).Now),
	}
	if o.actor != "" {
		clientOpts = append(clientOpts, member.WithActor(o.actor))
	} else {
		clientOpts = append(clientOpts, member.WithActor(s.Name))
	}
	if o.tracer != nil {
		clientOpts = append(clientOpts, member.WithTracer(o.tracer))
	}
	audit := s.Audit
	if audit == nil {
		audit = o.audit
	}
	if audit != nil {
		p, err := member.ParseAuditPolicy(audit.Policy)
		if err != nil {
			return nil, err
		}
		clientOpts = append(clientOpts, member.WithAudit(audit.Capacity, p))
	}
	if s.Schema != "" {
		reg, err := schema.Load(s.Schema)
		if err != nil {
			return nil, fmt.Errorf("load schema: %w", err)
		}
		clientOpts = append(clientOpts, member.WithSchema(reg))
	}
	h.client = member.NewClient(clientOpts...)

	backend := s.KV
	if backend == "" {
		backend = o.kv
	}
	needShards := false
	for _, r := range s.Registrations {
		needShards = needShards || r.Shard
	}

	var err error
	switch backend {
	case "none":
	case "sqlite":
		st := o.kvStore
		if st == nil {
			if st, err = h.memStore(); err != nil {
				h.close()
				return nil, err
			}
		}
		h.kv = storeMirror{st.KV(s.Name)}
	default:
		h.kv = cacheMirror{kvcache.New(s.Name, o.ttl, 0, o.logger)}
	}
	if needShards {
		h.shards = o.shardStore
		if h.shards == nil {
			if h.shards, err = h.memStore(); err != nil {
				h.close()
				return nil, err
			}
		}
	}

	for _, r := range s.Registrations {
		if err := h.register(r); err != nil {
			h.close()
			return nil, fmt.Errorf("registration %s: %w", r.Name, err)
		}
	}
	return h, nil
}

func (h *Harness) register(r RegistrationSpec) error {
	cat, err := keyspec.ParseCategory(r.Category)
	if err != nil {
		return err
	}
	ks, err := keyspec.ParseXPath(r.Keyspec, cat)
	if err != nil {
		return err
	}
	flags, err := member.ParseRegFlags(r.Flags...)
	if err != nil {
		return err
	}
	var regOpts []member.RegOption
	if h.kv != nil {
		regOpts = append(regOpts, member.WithKV(h.kv))
	}
	if r.Shard {
		regOpts = append(regOpts, member.WithShard(h.shards.Shard(r.Name)))
	}
	reg, err := h.client.Register(ks, r.Type, flags, regOpts...)
	if err != nil {
		return err
	}
	h.regs[r.Name] = reg
	return nil
}

// memStore returns the run's private in-memory database, opening it on
// first use.
func (h *Harness) memStore() (*store.Store, error) {
	if h.owned == nil {
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		h.owned = st
	}
	return h.owned, nil
}

func (h *Harness) close() {
	if h.owned != nil {
		_ = h.owned.Close()
	}
}

// emit appends ev with the next sequence number and returns its index.
func (h *Harness) emit(ev TraceEvent) int {
	ev.Seq = h.seq.Next()
	h.result.Trace = append(h.result.Trace, ev)
	return len(h.result.Trace) - 1
}

func (h *Harness) xactName(id string) string {
	if n, ok := h.names[id]; ok {
		return n
	}
	return id
}

// advised returns the journal entries added since the last call.
func (h *Harness) advised() []string {
	j := h.router.Journal()
	var out []string
	for _, e := range j[h.journal:] {
		out = append(out, fmt.Sprintf("%s %s %s", h.xactName(e.Xact), e.Query.Action, e.Query.Keyspec))
	}
	h.journal = len(j)
	return out
}

func (h *Harness) lookupXact(name string) (xact.Transaction, error) {
	if name == "" {
		return nil, nil
	}
	x, ok := h.xacts[name]
	if !ok {
		return nil, fmt.Errorf("transaction %q was never begun", name)
	}
	return x, nil
}

func (h *Harness) step(i int, st Step) error {
	idx := h.emit(TraceEvent{Op: st.Op, Reg: st.Reg, Xact: st.Xact, At: st.At})

	var opErr error
	switch st.Op {
	case OpBegin:
		if _, ok := h.xacts[st.Xact]; ok {
			return fmt.Errorf("transaction %q already begun", st.Xact)
		}
		x := h.router.Begin()
		h.xacts[st.Xact] = x
		h.names[x.ID()] = st.Xact
	case OpCommit, OpAbort:
		x, ok := h.xacts[st.Xact]
		if !ok {
			return fmt.Errorf("transaction %q was never begun", st.Xact)
		}
		if st.Op == OpCommit {
			x.Commit()
		} else {
			x.Abort(errScenarioAbort)
		}
	case OpDrain:
		n := h.client.Executor().Drain()
		h.result.Trace[idx].Count = &n
	default:
		var err error
		opErr, err = h.call(st, idx)
		if err != nil {
			return err
		}
	}

	// Callbacks append to the trace, so index rather than hold a pointer
	// across the call.
	ev := &h.result.Trace[idx]
	ev.Status = member.StatusOf(opErr).String()
	if code, ok := member.CodeOf(opErr); ok {
		ev.Code = string(code)
	}
	ev.Advised = h.advised()
	h.checkExpect(i, st, *ev, opErr)
	return nil
}

func (h *Harness) keyRef(st Step) (member.KeyRef, error) {
	switch {
	case st.At != "":
		return member.AtXPath(st.At), nil
	case st.Minikey != nil:
		vals := make([]ir.Value, len(st.Minikey))
		for i, raw := range st.Minikey {
			v, err := ir.FromAny(raw)
			if err != nil {
				return member.KeyRef{}, fmt.Errorf("minikey[%d]: %w", i, err)
			}
			vals[i] = v
		}
		return member.AtMinikey(vals...), nil
	}
	return member.KeyRef{}, nil
}

func toMessage(typ string, raw map[string]any) (*ir.Message, error) {
	if raw == nil {
		return nil, nil
	}
	v, err := ir.FromAny(raw)
	if err != nil {
		return nil, fmt.Errorf("message: %w", err)
	}
	return &ir.Message{Type: typ, Body: v.(ir.Object)}, nil
}

// callback records the advise outcome of the step at idx.
func (h *Harness) callback(st Step) member.Callback {
	return func(s member.Status, err error) {
		ev := TraceEvent{Op: "callback", Reg: st.Reg, Xact: st.Xact, At: st.At, Status: s.String()}
		if code, ok := member.CodeOf(err); ok {
			ev.Code = string(code)
		}
		h.emit(ev)
	}
}

// call runs a client operation. opErr is the operation's outcome; err
// means the step itself is malformed.
func (h *Harness) call(st Step, idx int) (opErr, err error) {
	reg := h.regs[st.Reg]
	x, err := h.lookupXact(st.Xact)
	if err != nil {
		return nil, err
	}
	ref, err := h.keyRef(st)
	if err != nil {
		return nil, err
	}
	msg, err := toMessage(reg.MessageType(), st.Message)
	if err != nil {
		return nil, err
	}
	var flags xact.Flags
	if st.Replace {
		flags |= xact.FlagReplace
	}
	cb := member.WithCallback(h.callback(st))
	ctx := h.ctx

	switch st.Op {
	case OpCreate:
		if st.Async {
			return h.client.CreateAsync(ctx, x, reg, ref, msg, cb), nil
		}
		return h.client.Create(ctx, x, reg, ref, msg, cb), nil
	case OpUpdate:
		if st.Async {
			return h.client.UpdateAsync(ctx, x, reg, ref, msg, flags, cb), nil
		}
		return h.client.Update(ctx, x, reg, ref, msg, flags, cb), nil
	case OpDelete:
		if st.Async {
			return h.client.DeleteAsync(ctx, x, reg, ref, msg, cb), nil
		}
		return h.client.Delete(ctx, x, reg, ref, msg, cb), nil
	case OpGet:
		item, getErr := h.client.Get(ctx, x, reg, ref)
		if getErr == nil {
			h.result.Trace[idx].Body = item.Message.Body
		}
		return getErr, nil
	case OpPublish:
		ks, parseErr := keyspec.ParseXPath(st.At, reg.Category())
		if parseErr != nil {
			return nil, fmt.Errorf("publish at: %w", parseErr)
		}
		n, pubErr := h.client.Publish(ctx, x, reg, ks, msg, flags, cb)
		h.result.Trace[idx].Count = &n
		return pubErr, nil
	case OpList:
		keys, listErr := h.list(x, reg)
		n := len(keys)
		h.result.Trace[idx].Keys = keys
		h.result.Trace[idx].Count = &n
		return listErr, nil
	}
	return nil, fmt.Errorf("unknown op %q", st.Op)
}

// list walks a cursor to exhaustion and returns the keyspecs it visited.
func (h *Harness) list(x xact.Transaction, reg *member.Registration) ([]string, error) {
	cur := member.NewCursor(reg)
	if x != nil {
		cur = member.NewXactCursor(x)
	}
	keys := []string{}
	for {
		item, err := h.client.GetNext(h.ctx, reg, cur)
		if member.IsNotFound(err) {
			return keys, nil
		}
		if err != nil {
			return keys, err
		}
		keys = append(keys, item.Keyspec.String())
	}
}
