package xact

import (
	"log/slog"
	"sync"
)

// Entry is one journaled query, in advise order.
type Entry struct {
	Seq   int64
	Xact  string
	Query Query
}

// Local is an in-process Router. Transactions it starts through Advise
// commit immediately unless deferred commit is configured; transactions
// started with Begin stay running until Commit or Abort.
//
// Local journals every query it accepts so callers can inspect what a
// member advised.
type Local struct {
	mu       sync.Mutex
	gen      IDGenerator
	logger   *slog.Logger
	deferred bool
	seq      int64
	journal  []Entry
	xacts    map[string]*LocalXact
}

// LocalOption configures a Local router.
type LocalOption func(*Local)

// WithIDGenerator sets the transaction id source.
func WithIDGenerator(g IDGenerator) LocalOption {
	return func(l *Local) {
		l.gen = g
	}
}

// WithLogger sets the router's logger.
func WithLogger(logger *slog.Logger) LocalOption {
	return func(l *Local) {
		l.logger = logger
	}
}

// WithDeferredCommit leaves transactions started by Advise running.
func WithDeferredCommit() LocalOption {
	return func(l *Local) {
		l.deferred = true
	}
}

// NewLocal creates a router with UUIDv7 transaction ids.
func NewLocal(opts ...LocalOption) *Local {
	l := &Local{
		gen:    UUIDv7Generator{},
		logger: slog.Default(),
		xacts:  make(map[string]*LocalXact),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Begin starts an explicit transaction.
func (l *Local) Begin() *LocalXact {
	x := &LocalXact{id: l.gen.Generate(), router: l}
	l.mu.Lock()
	l.xacts[x.id] = x
	l.mu.Unlock()
	l.logger.Debug("xact: begin", "xact", x.id)
	return x
}

// Advise starts a transaction carrying q.
func (l *Local) Advise(q Query, cb Callback) (Transaction, error) {
	x := l.Begin()
	if err := x.AddQuery(q, cb); err != nil {
		return nil, err
	}
	if !l.deferred {
		x.Commit()
	}
	return x, nil
}

// Lookup finds a transaction by id.
func (l *Local) Lookup(id string) (*LocalXact, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	x, ok := l.xacts[id]
	return x, ok
}

// Journal returns a copy of every query accepted so far.
func (l *Local) Journal() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.journal))
	copy(out, l.journal)
	return out
}

func (l *Local) record(id string, q Query) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	l.journal = append(l.journal, Entry{Seq: l.seq, Xact: id, Query: q})
}

func (l *Local) forget(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.xacts, id)
}

type pendingQuery struct {
	query Query
	cb    Callback
}

// LocalXact is a transaction owned by a Local router. It is not safe for
// concurrent use; like member overlays it belongs to one execution context.
type LocalXact struct {
	id        string
	router    *Local
	status    Status
	err       error
	queries   []pendingQuery
	finishers []func(Status)
}

var _ Transaction = (*LocalXact)(nil)

func (x *LocalXact) ID() string { return x.id }

func (x *LocalXact) Status() Status { return x.status }

// Err returns the abort cause.
func (x *LocalXact) Err() error { return x.err }

// AddQuery appends a deep copy of q.
func (x *LocalXact) AddQuery(q Query, cb Callback) error {
	if x.status.Terminal() {
		return ErrFinished
	}
	q = q.Clone()
	x.queries = append(x.queries, pendingQuery{query: q, cb: cb})
	x.router.record(x.id, q)
	x.router.logger.Debug("xact: query", "xact", x.id, "action", q.Action.String(), "keyspec", q.Keyspec.String())
	return nil
}

// Queries returns the queries added so far.
func (x *LocalXact) Queries() []Query {
	out := make([]Query, len(x.queries))
	for i, p := range x.queries {
		out[i] = p.query
	}
	return out
}

func (x *LocalXact) OnFinish(fn func(Status)) {
	x.finishers = append(x.finishers, fn)
}

// Commit finishes the transaction successfully.
func (x *LocalXact) Commit() {
	x.finish(StatusCommitted, nil)
}

func (x *LocalXact) Abort(err error) {
	x.finish(StatusAborted, err)
}

func (x *LocalXact) finish(s Status, err error) {
	if x.status.Terminal() {
		return
	}
	x.status = s
	x.err = err
	if err != nil {
		x.router.logger.Info("xact: finished", "xact", x.id, "status", s.String(), "error", err)
	} else {
		x.router.logger.Debug("xact: finished", "xact", x.id, "status", s.String())
	}
	for _, fn := range x.finishers {
		fn(s)
	}
	res := Result{Xact: x.id, Status: s, Err: err}
	for _, p := range x.queries {
		if p.cb != nil {
			p.cb(res)
		}
	}
	x.router.forget(x.id)
}
