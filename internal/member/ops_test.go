package member

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/testutil"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/xact"
)

func TestCarLifecycle(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCars(t, FlagPublisher)

	f.mustCreate(t, nil, reg, "Toyota", "Corolla")
	assert.Equal(t, ir.Strings("Corolla"), f.models(t, nil, reg, "Toyota"))

	require.NoError(t, f.c.Update(f.ctx, nil, reg, brand("Toyota"), car("Camry"), 0))
	assert.Equal(t, ir.Strings("Corolla", "Camry"), f.models(t, nil, reg, "Toyota"))

	require.NoError(t, f.c.Delete(f.ctx, nil, reg, brand("Toyota"), nil))
	f.absent(t, nil, reg, "Toyota")

	assert.Equal(t, []xact.Action{xact.ActionCreate, xact.ActionUpdate, xact.ActionDelete}, f.actions())
	assert.Equal(t, int64(3), reg.Serial())
	assert.Equal(t, 0, reg.Count())
}

func TestCreateExistingUpdates(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCars(t, FlagPublisher)

	f.mustCreate(t, nil, reg, "Toyota", "Corolla")
	f.mustCreate(t, nil, reg, "Toyota", "Prius")

	assert.Equal(t, 1, reg.Count())
	assert.Equal(t, ir.Strings("Corolla", "Prius"), f.models(t, nil, reg, "Toyota"))
	assert.Equal(t, xact.ActionUpdate, f.lastQuery(t).Query.Action)
}

func TestUpdateReplace(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCars(t, FlagPublisher)
	f.mustCreate(t, nil, reg, "Toyota", "Corolla")

	require.NoError(t, f.c.Update(f.ctx, nil, reg, brand("Toyota"), car("Camry"), xact.FlagReplace))
	assert.Equal(t, ir.Strings("Camry"), f.models(t, nil, reg, "Toyota"))

	q := f.lastQuery(t).Query
	assert.True(t, q.Flags.Has(xact.FlagReplace))
	assert.True(t, ir.Equal(ir.Strings("Camry"), q.Message.Body["models"]), "advise carries the stored message")
}

func TestUpdateMissingCreates(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCars(t, FlagPublisher)

	require.NoError(t, f.c.Update(f.ctx, nil, reg, brand("Honda"), car("Civic"), 0))
	assert.Equal(t, ir.Strings("Civic"), f.models(t, nil, reg, "Honda"))
	assert.Equal(t, xact.ActionCreate, f.lastQuery(t).Query.Action)
}

func TestCreateDefaultsMessageType(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCars(t, FlagPublisher)

	msg := &ir.Message{Body: ir.Obj(ir.F("models", ir.Strings("Civic")))}
	require.NoError(t, f.c.Create(f.ctx, nil, reg, brand("Honda"), msg))

	item, err := f.c.Get(f.ctx, nil, reg, brand("Honda"))
	require.NoError(t, err)
	assert.Equal(t, "Car", item.Message.Type)
	assert.Empty(t, msg.Type, "caller's message is not modified")
}

func TestGetReturnsCopy(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCars(t, FlagPublisher)
	f.mustCreate(t, nil, reg, "Toyota", "Corolla")

	item, err := f.c.Get(f.ctx, nil, reg, brand("Toyota"))
	require.NoError(t, err)
	item.Message.Body["models"] = ir.Strings("mutated")

	assert.Equal(t, ir.Strings("Corolla"), f.models(t, nil, reg, "Toyota"))
}

func TestKeyRefForms(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCars(t, FlagPublisher)
	f.mustCreate(t, nil, reg, "Toyota", "Corolla")

	refs := map[string]KeyRef{
		"entry":   brand("Toyota"),
		"minikey": AtMinikey(ir.String("Toyota")),
		"keyspec": AtKeyspec(keyspec.MustParse(`/car[brand='Toyota']`, keyspec.CategoryAny)),
		"xpath":   AtXPath(`/car[brand='Toyota']`),
	}
	for name, ref := range refs {
		t.Run(name, func(t *testing.T) {
			item, err := f.c.Get(f.ctx, nil, reg, ref)
			require.NoError(t, err)
			assert.Equal(t, keyspec.CategoryConfig, item.Keyspec.Category)
			assert.Equal(t, `/car[brand='Toyota']`, item.Keyspec.String())
		})
	}
}

func TestCustomXPathResolver(t *testing.T) {
	alias := XPathFunc(func(xpath string, cat keyspec.Category) (*keyspec.Keyspec, error) {
		if xpath == "toyota" {
			return keyspec.ParseXPath(`/car[brand='Toyota']`, cat)
		}
		return nil, errors.New("unknown alias")
	})
	f := newFixture(t, WithXPathResolver(alias))
	reg := f.registerCars(t, FlagPublisher)
	f.mustCreate(t, nil, reg, "Toyota", "Corolla")

	_, err := f.c.Get(f.ctx, nil, reg, AtXPath("toyota"))
	require.NoError(t, err)

	_, err = f.c.Get(f.ctx, nil, reg, AtXPath("honda"))
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidInput, code)
}

func TestResolveErrors(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCars(t, FlagPublisher)

	tests := []struct {
		name   string
		ref    KeyRef
		code   Code
		status Status
	}{
		{"wildcard base", KeyRef{}, CodeKeyWildcards, StatusFailure},
		{"minikey arity", AtMinikey(ir.String("Toyota"), ir.Int(1)), CodeOutOfBounds, StatusOutOfBounds},
		{"unknown key field", AtKeys("car", keyspec.K("model", ir.String("x"))), CodeKeyAppend, StatusFailure},
		{"null key", AtMinikey(ir.Null{}), CodeKeyBinpath, StatusFailure},
		{"bad xpath", AtXPath("car"), CodeInvalidInput, StatusFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.c.Create(f.ctx, nil, reg, tt.ref, car("x"))
			require.Error(t, err)
			code, ok := CodeOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.status, StatusOf(err))
		})
	}
	assert.Empty(t, f.router.Journal(), "failed operations advise nothing")
	assert.Equal(t, 0, reg.Count())
}

func TestFailureAbortsTransaction(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCars(t, FlagPublisher)
	x := f.router.Begin()

	f.mustCreate(t, x, reg, "Toyota", "Corolla")
	err := f.c.Create(f.ctx, x, reg, KeyRef{}, car("x"))
	require.Error(t, err)
	assert.True(t, IsWildcards(err))

	assert.Equal(t, xact.StatusAborted, x.Status())
	assert.Same(t, err, x.Err())
	var me *Error
	require.True(t, errors.As(x.Err(), &me))
	assert.Equal(t, x.ID(), me.Xact)

	assert.Equal(t, 0, f.c.OverlayLen(x.ID()), "aborted overlay is discarded")
	f.absent(t, nil, reg, "Toyota")
}

func TestTransactionVisibility(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCars(t, FlagPublisher)
	f.mustCreate(t, nil, reg, "Toyota", "Corolla")

	x := f.router.Begin()
	f.mustCreate(t, x, reg, "Honda", "Civic")
	require.NoError(t, f.c.Update(f.ctx, x, reg, brand("Toyota"), car("Camry"), 0))

	assert.Equal(t, ir.Strings("Civic"), f.models(t, x, reg, "Honda"))
	assert.Equal(t, ir.Strings("Corolla", "Camry"), f.models(t, x, reg, "Toyota"))
	f.absent(t, nil, reg, "Honda")
	assert.Equal(t, ir.Strings("Corolla"), f.models(t, nil, reg, "Toyota"))
	assert.Equal(t, 2, f.c.OverlayLen(x.ID()))
	assert.Equal(t, int64(1), reg.Serial(), "serial waits for the transaction")

	x.Commit()
	assert.Equal(t, ir.Strings("Civic"), f.models(t, nil, reg, "Honda"))
	assert.Equal(t, ir.Strings("Corolla", "Camry"), f.models(t, nil, reg, "Toyota"))
	assert.Equal(t, 0, f.c.OverlayLen(x.ID()))
	assert.Equal(t, int64(3), reg.Serial())
	assert.Equal(t, 2, reg.Count())
}

func TestTransactionAbortDiscards(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCars(t, FlagPublisher)
	f.mustCreate(t, nil, reg, "Toyota", "Corolla")

	x := f.router.Begin()
	f.mustCreate(t, x, reg, "Honda", "Civic")
	require.NoError(t, f.c.Update(f.ctx, x, reg, brand("Toyota"), car("Camry"), xact.FlagReplace))
	x.Abort(errors.New("operator cancelled"))

	f.absent(t, nil, reg, "Honda")
	assert.Equal(t, ir.Strings("Corolla"), f.models(t, nil, reg, "Toyota"))
	assert.Equal(t, 1, reg.Count())
}

func TestTransactionsAreIsolated(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCars(t, FlagPublisher)

	x1 := f.router.Begin()
	x2 := f.router.Begin()
	f.mustCreate(t, x1, reg, "Toyota", "Corolla")
	f.mustCreate(t, x2, reg, "Toyota", "Yaris")

	assert.Equal(t, ir.Strings("Corolla"), f.models(t, x1, reg, "Toyota"))
	assert.Equal(t, ir.Strings("Yaris"), f.models(t, x2, reg, "Toyota"))

	x2.Commit()
	x1.Commit()
	assert.Equal(t, ir.Strings("Corolla"), f.models(t, nil, reg, "Toyota"), "last commit wins")
	assert.Equal(t, 1, reg.Count())
}

func TestOverlayPerRegistration(t *testing.T) {
	f := newFixture(t)
	pub := f.registerCars(t, FlagPublisher)
	cache := f.registerCars(t, FlagSubscriber|FlagCache)

	x := f.router.Begin()
	f.mustCreate(t, x, pub, "Toyota", "Corolla")
	f.absent(t, x, cache, "Toyota")
	f.mustCreate(t, x, cache, "Toyota", "Yaris")
	assert.Equal(t, 2, f.c.OverlayLen(x.ID()))

	x.Commit()
	assert.Equal(t, ir.Strings("Corolla"), f.models(t, nil, pub, "Toyota"))
	assert.Equal(t, ir.Strings("Yaris"), f.models(t, nil, cache, "Toyota"))
}

func TestCallbacks(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCars(t, FlagPublisher)

	var got []Status
	record := WithCallback(func(s Status, _ error) { got = append(got, s) })

	require.NoError(t, f.c.Create(f.ctx, nil, reg, brand("Toyota"), car("Corolla"), record))
	assert.Equal(t, []Status{StatusSuccess}, got)

	x := f.router.Begin()
	require.NoError(t, f.c.Create(f.ctx, x, reg, brand("Honda"), car("Civic"), record))
	assert.Len(t, got, 1, "in-transaction callbacks wait for the outcome")
	x.Abort(errors.New("no"))
	assert.Equal(t, []Status{StatusSuccess, StatusFailure}, got)
}

func TestAuditTrail(t *testing.T) {
	t.Run("records mutations", func(t *testing.T) {
		f := newFixture(t)
		reg := f.registerCars(t, FlagPublisher)
		f.mustCreate(t, nil, reg, "Toyota", "Corolla")
		require.NoError(t, f.c.Update(f.ctx, nil, reg, brand("Toyota"), car("Camry"), 0))

		item, err := f.c.Get(f.ctx, nil, reg, brand("Toyota"))
		require.NoError(t, err)
		require.Len(t, item.Audit, 2)
		assert.Equal(t, AuditEntry{Actor: "tester", Action: xact.ActionCreate, Timestamp: testutil.Epoch}, item.Audit[0])
		assert.Equal(t, xact.ActionUpdate, item.Audit[1].Action)
		assert.Equal(t, testutil.Epoch.Add(time.Second), item.Audit[1].Timestamp)
	})

	t.Run("full trail rejects but operation succeeds", func(t *testing.T) {
		f := newFixture(t, WithAudit(2, AuditReject))
		reg := f.registerCars(t, FlagPublisher)
		f.mustCreate(t, nil, reg, "Toyota", "a")
		for _, m := range []string{"b", "c", "d"} {
			require.NoError(t, f.c.Update(f.ctx, nil, reg, brand("Toyota"), car(m), 0))
		}

		item, err := f.c.Get(f.ctx, nil, reg, brand("Toyota"))
		require.NoError(t, err)
		require.Len(t, item.Audit, 2)
		assert.Equal(t, testutil.Epoch, item.Audit[0].Timestamp)
		assert.Equal(t, ir.Strings("a", "b", "c", "d"), item.Message.Body["models"])
	})

	t.Run("evict oldest", func(t *testing.T) {
		f := newFixture(t, WithAudit(2, AuditEvictOldest))
		reg := f.registerCars(t, FlagPublisher)
		f.mustCreate(t, nil, reg, "Toyota", "a")
		for _, m := range []string{"b", "c", "d"} {
			require.NoError(t, f.c.Update(f.ctx, nil, reg, brand("Toyota"), car(m), 0))
		}

		item, err := f.c.Get(f.ctx, nil, reg, brand("Toyota"))
		require.NoError(t, err)
		require.Len(t, item.Audit, 2)
		assert.Equal(t, testutil.Epoch.Add(2*time.Second), item.Audit[0].Timestamp)
		assert.Equal(t, testutil.Epoch.Add(3*time.Second), item.Audit[1].Timestamp)
	})
}

func TestKVMirror(t *testing.T) {
	toyota := config(`/car[brand='Toyota']`).MustKey()

	t.Run("cache publisher mirrors committed writes", func(t *testing.T) {
		f := newFixture(t)
		kv := testutil.NewMemKV()
		reg := f.registerCars(t, FlagPublisher|FlagCache, WithKV(kv))

		f.mustCreate(t, nil, reg, "Toyota", "Corolla")
		v, ok := kv.Get(toyota)
		require.True(t, ok)
		assert.Equal(t, `{"models":["Corolla"]}`, v)

		require.NoError(t, f.c.Delete(f.ctx, nil, reg, brand("Toyota"), nil))
		_, ok = kv.Get(toyota)
		assert.False(t, ok)
	})

	t.Run("transaction mirrors on commit only", func(t *testing.T) {
		f := newFixture(t)
		kv := testutil.NewMemKV()
		reg := f.registerCars(t, FlagPublisher|FlagDatastore, WithKV(kv))

		x := f.router.Begin()
		f.mustCreate(t, x, reg, "Toyota", "Corolla")
		assert.Equal(t, 0, kv.Len())
		x.Commit()
		assert.Equal(t, []keyspec.Key{toyota}, kv.Keys())

		x = f.router.Begin()
		f.mustCreate(t, x, reg, "Honda", "Civic")
		x.Abort(errors.New("no"))
		assert.Equal(t, 1, kv.Len())
	})

	t.Run("subscriber does not mirror", func(t *testing.T) {
		f := newFixture(t)
		kv := testutil.NewMemKV()
		reg := f.registerCars(t, FlagSubscriber|FlagCache, WithKV(kv))
		f.mustCreate(t, nil, reg, "Toyota", "Corolla")
		assert.Equal(t, 0, kv.Len())
	})

	t.Run("mirror failure keeps the table", func(t *testing.T) {
		f := newFixture(t)
		kv := testutil.NewMemKV()
		kv.FailNext()
		reg := f.registerCars(t, FlagPublisher|FlagCache, WithKV(kv))
		f.mustCreate(t, nil, reg, "Toyota", "Corolla")
		assert.Equal(t, 1, reg.Count())
		assert.Equal(t, 0, kv.Len())
	})
}

type stripField string

func (s stripField) Strip(m *ir.Message) []string {
	if _, ok := m.Body[string(s)]; !ok {
		return nil
	}
	delete(m.Body, string(s))
	return []string{string(s)}
}

func TestSchemaStripsUnknownFields(t *testing.T) {
	f := newFixture(t, WithSchema(stripField("color")))
	reg := f.registerCars(t, FlagPublisher)

	msg := car("Corolla")
	msg.Body["color"] = ir.String("red")
	require.NoError(t, f.c.Create(f.ctx, nil, reg, brand("Toyota"), msg))

	item, err := f.c.Get(f.ctx, nil, reg, brand("Toyota"))
	require.NoError(t, err)
	_, has := item.Message.Body["color"]
	assert.False(t, has)
	assert.Equal(t, ir.String("red"), msg.Body["color"], "caller's message is not modified")
}

func TestRegisterAndDeregister(t *testing.T) {
	f := newFixture(t)

	_, err := f.c.Register(nil, "Car", FlagPublisher)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = f.c.Register(keyspec.MustParse(`/car[brand=*]`, keyspec.CategoryAny), "Car", FlagPublisher)
	assert.ErrorIs(t, err, ErrInvalid)

	reg := f.registerCars(t, FlagPublisher)
	other := f.registerCars(t, FlagSubscriber)
	assert.Equal(t, "reg#1/car[brand=*]", reg.String())
	assert.Equal(t, []*Registration{reg, other}, f.c.Registrations())

	x := f.router.Begin()
	f.mustCreate(t, nil, reg, "Toyota", "Corolla")
	f.mustCreate(t, x, reg, "Honda", "Civic")

	f.c.Deregister(reg)
	assert.True(t, reg.Closed())
	assert.Equal(t, 0, reg.Count())
	assert.Equal(t, 0, f.c.OverlayLen(x.ID()))
	assert.Equal(t, []*Registration{other}, f.c.Registrations())

	err = f.c.Create(f.ctx, nil, reg, brand("BMW"), car("M3"))
	assert.ErrorIs(t, err, ErrInvalid)

	x.Commit()
	assert.Equal(t, 0, reg.Count(), "commit skips closed registrations")
}

func TestContractViolationsPanic(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCars(t, FlagPublisher)
	foreign := newFixture(t).registerCars(t, FlagPublisher)

	tests := map[string]func(){
		"nil message on create": func() { _ = f.c.Create(f.ctx, nil, reg, brand("a"), nil) },
		"nil message on update": func() { _ = f.c.Update(f.ctx, nil, reg, brand("a"), nil, 0) },
		"two key sources": func() {
			_ = f.c.Create(f.ctx, nil, reg, KeyRef{Minikey: keyspec.Minikey{ir.String("a")}, XPath: "/car"}, car())
		},
		"category mismatch": func() {
			_ = f.c.Create(f.ctx, nil, reg, AtKeyspec(keyspec.MustParse(`/car[brand='a']`, keyspec.CategoryData)), car())
		},
		"nil registration":     func() { _ = f.c.Create(f.ctx, nil, nil, brand("a"), car()) },
		"foreign registration": func() { _ = f.c.Create(f.ctx, nil, foreign, brand("a"), car()) },
		"nil cursor":           func() { _, _ = f.c.GetNext(f.ctx, reg, nil) },
	}
	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Panics(t, fn)
		})
	}
}

func TestWritesStayAtRegistrationKey(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		ref   KeyRef
		code  Code
		write func(f *fixture, x xact.Transaction, reg *Registration, ref KeyRef) error
	}{
		{
			name: "appended entry on create",
			base: `/garage`,
			ref:  brand("Toyota"),
			code: CodeKeyAppend,
			write: func(f *fixture, x xact.Transaction, reg *Registration, ref KeyRef) error {
				return f.c.Create(f.ctx, x, reg, ref, car("Corolla"))
			},
		},
		{
			name: "appended entry on update",
			base: `/garage`,
			ref:  brand("Toyota"),
			code: CodeKeyAppend,
			write: func(f *fixture, x xact.Transaction, reg *Registration, ref KeyRef) error {
				return f.c.Update(f.ctx, x, reg, ref, car("Corolla"), 0)
			},
		},
		{
			name: "foreign keyspec on create",
			base: `/car[brand=*]`,
			ref:  AtKeyspec(config(`/truck[id=1]`)),
			code: CodeInvalidInput,
			write: func(f *fixture, x xact.Transaction, reg *Registration, ref KeyRef) error {
				return f.c.Create(f.ctx, x, reg, ref, car("Corolla"))
			},
		},
		{
			name: "foreign xpath on update",
			base: `/car[brand=*]`,
			ref:  AtXPath(`/truck[id=1]`),
			code: CodeInvalidInput,
			write: func(f *fixture, x xact.Transaction, reg *Registration, ref KeyRef) error {
				return f.c.Update(f.ctx, x, reg, ref, car("Corolla"), xact.FlagReplace)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			reg, err := f.c.Register(config(tt.base), "Car", FlagPublisher)
			require.NoError(t, err)

			err = tt.write(f, nil, reg, tt.ref)
			code, ok := CodeOf(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, 0, reg.Count())
			assert.Empty(t, f.committed(t, reg))
			assert.Empty(t, f.router.Journal())

			x := f.router.Begin()
			require.Error(t, tt.write(f, x, reg, tt.ref))
			assert.Equal(t, xact.StatusAborted, x.Status())
			assert.Equal(t, 0, f.c.OverlayLen(x.ID()))
		})
	}
}

func TestWriteToFinishedTransaction(t *testing.T) {
	finish := map[string]func(x *xact.LocalXact){
		"committed": func(x *xact.LocalXact) { x.Commit() },
		"aborted":   func(x *xact.LocalXact) { x.Abort(errors.New("operator cancelled")) },
	}
	for name, end := range finish {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			reg := f.registerCars(t, FlagPublisher)
			f.mustCreate(t, nil, reg, "Honda", "Civic")
			x := f.router.Begin()
			end(x)
			status := x.Status()

			err := f.c.Create(f.ctx, x, reg, brand("Toyota"), car("Corolla"))
			code, ok := CodeOf(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, CodeInconsistent, code)
			assert.ErrorIs(t, err, xact.ErrFinished)

			err = f.c.Delete(f.ctx, x, reg, brand("Honda"), nil)
			assert.ErrorIs(t, err, xact.ErrFinished)

			assert.Equal(t, 0, f.c.OverlayLen(x.ID()))
			f.absent(t, x, reg, "Toyota")
			f.absent(t, nil, reg, "Toyota")
			assert.Equal(t, ir.Strings("Civic"), f.models(t, x, reg, "Honda"))
			assert.Equal(t, status, x.Status())
		})
	}
}

func TestRouterFailureRevertsWrite(t *testing.T) {
	tests := map[string]func(f *fixture, reg *Registration) error{
		"create": func(f *fixture, reg *Registration) error {
			return f.c.Create(f.ctx, nil, reg, brand("BMW"), car("X5"))
		},
		"create existing": func(f *fixture, reg *Registration) error {
			return f.c.Create(f.ctx, nil, reg, brand("Toyota"), car("Camry"))
		},
		"merge": func(f *fixture, reg *Registration) error {
			return f.c.Update(f.ctx, nil, reg, brand("Honda"), car("Accord"), 0)
		},
		"replace": func(f *fixture, reg *Registration) error {
			return f.c.Update(f.ctx, nil, reg, brand("Honda"), car("Accord"), xact.FlagReplace)
		},
	}
	for name, write := range tests {
		t.Run(name, func(t *testing.T) {
			f, router := newSwitchFixture(t)
			reg := f.registerCars(t, FlagPublisher)
			seedCars(t, f, reg)
			before, serial := f.committed(t, reg), reg.Serial()

			router.down = true
			err := write(f, reg)
			code, ok := CodeOf(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, CodeInconsistent, code)
			assert.ErrorIs(t, err, errRouterDown)

			assert.Equal(t, before, f.committed(t, reg))
			assert.Equal(t, serial, reg.Serial())
		})
	}
}
