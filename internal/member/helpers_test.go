package member

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/testutil"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/xact"
)

type fixture struct {
	ctx    context.Context
	c      *Client
	router *xact.Local
	clock  *testutil.DeterministicClock
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	logger := testutil.DiscardLogger()
	router := xact.NewLocal(
		xact.WithIDGenerator(xact.NewSequenceGenerator("x")),
		xact.WithLogger(logger),
	)
	clock := testutil.NewDeterministicClock(0)
	base := []Option{WithRouter(router), WithLogger(logger), WithNow(clock.Now), WithActor("tester")}
	return &fixture{
		ctx:    context.Background(),
		c:      NewClient(append(base, opts...)...),
		router: router,
		clock:  clock,
	}
}

func config(xpath string) *keyspec.Keyspec {
	return keyspec.MustParse(xpath, keyspec.CategoryConfig)
}

func (f *fixture) registerCars(t *testing.T, flags RegFlags, opts ...RegOption) *Registration {
	t.Helper()
	reg, err := f.c.Register(config(`/car[brand=*]`), "Car", flags, opts...)
	require.NoError(t, err)
	return reg
}

func brand(name string) KeyRef {
	return AtKeys("car", keyspec.K("brand", ir.String(name)))
}

func car(models ...string) *ir.Message {
	return ir.NewMessage("Car", ir.F("models", ir.Strings(models...)))
}

func (f *fixture) mustCreate(t *testing.T, x xact.Transaction, reg *Registration, name string, models ...string) {
	t.Helper()
	require.NoError(t, f.c.Create(f.ctx, x, reg, brand(name), car(models...)))
}

func (f *fixture) models(t *testing.T, x xact.Transaction, reg *Registration, name string) ir.Value {
	t.Helper()
	item, err := f.c.Get(f.ctx, x, reg, brand(name))
	require.NoError(t, err, "get %s", name)
	return item.Message.Body["models"]
}

func (f *fixture) absent(t *testing.T, x xact.Transaction, reg *Registration, name string) {
	t.Helper()
	_, err := f.c.Get(f.ctx, x, reg, brand(name))
	require.True(t, IsNotFound(err), "expected %s to be absent, got %v", name, err)
}

// lastQuery returns the most recently journaled advise.
func (f *fixture) lastQuery(t *testing.T) xact.Entry {
	t.Helper()
	j := f.router.Journal()
	require.NotEmpty(t, j)
	return j[len(j)-1]
}

func (f *fixture) actions() []xact.Action {
	var out []xact.Action
	for _, e := range f.router.Journal() {
		out = append(out, e.Query.Action)
	}
	return out
}

// committed lists reg's committed items in cursor order.
func (f *fixture) committed(t *testing.T, reg *Registration) []*Item {
	t.Helper()
	cur := NewCursor(reg)
	var out []*Item
	for i := 0; i < 100; i++ {
		item, err := f.c.GetNext(f.ctx, reg, cur)
		if IsNotFound(err) {
			return out
		}
		require.NoError(t, err)
		out = append(out, item)
	}
	t.Fatal("cursor did not terminate")
	return nil
}

var errRouterDown = errors.New("router down")

// switchRouter advises through next until down is set.
type switchRouter struct {
	next xact.Router
	down bool
}

func (r *switchRouter) Advise(q xact.Query, cb xact.Callback) (xact.Transaction, error) {
	if r.down {
		return nil, errRouterDown
	}
	return r.next.Advise(q, cb)
}

// newSwitchFixture is newFixture with a router that can be taken down.
func newSwitchFixture(t *testing.T, opts ...Option) (*fixture, *switchRouter) {
	t.Helper()
	router := &switchRouter{}
	f := newFixture(t, append([]Option{WithRouter(router)}, opts...)...)
	router.next = f.router
	return f, router
}

var errShardDown = errors.New("shard down")

// memShard is an insertion-ordered Shard.
type memShard struct {
	recs  map[keyspec.Key]*ShardRecord
	order []keyspec.Key
	fail  bool
}

func newMemShard() *memShard {
	return &memShard{recs: make(map[keyspec.Key]*ShardRecord)}
}

func (s *memShard) Get(_ context.Context, key keyspec.Key) (*ShardRecord, error) {
	if s.fail {
		return nil, errShardDown
	}
	r := s.recs[key]
	if r == nil {
		return nil, nil
	}
	return &ShardRecord{Keyspec: r.Keyspec.Clone(), Message: r.Message.Clone()}, nil
}

func (s *memShard) Put(_ context.Context, key keyspec.Key, rec *ShardRecord) error {
	if s.fail {
		return errShardDown
	}
	if _, ok := s.recs[key]; !ok {
		s.order = append(s.order, key)
	}
	s.recs[key] = &ShardRecord{Keyspec: rec.Keyspec.Clone(), Message: rec.Message.Clone()}
	return nil
}

func (s *memShard) Delete(_ context.Context, key keyspec.Key) (bool, error) {
	if s.fail {
		return false, errShardDown
	}
	if _, ok := s.recs[key]; !ok {
		return false, nil
	}
	delete(s.recs, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *memShard) Scan(_ context.Context, fn func(keyspec.Key, *ShardRecord) error) error {
	if s.fail {
		return errShardDown
	}
	for _, k := range append([]keyspec.Key(nil), s.order...) {
		if err := fn(k, s.recs[k]); err != nil {
			return err
		}
	}
	return nil
}
