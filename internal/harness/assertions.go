package harness

import (
	"fmt"
	"slices"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/member"
)

// checkExpect compares a step's outcome with its expect clause. A step
// without one must succeed.
func (h *Harness) checkExpect(i int, st Step, ev TraceEvent, opErr error) {
	want := member.StatusSuccess.String()
	if st.Expect != nil && st.Expect.Status != "" {
		want = st.Expect.Status
	}
	if ev.Status != want {
		msg := fmt.Sprintf("steps[%d] %s: status %s, want %s", i, st.Op, ev.Status, want)
		if opErr != nil {
			msg += ": " + opErr.Error()
		}
		h.result.AddError(msg)
		return
	}
	e := st.Expect
	if e == nil {
		return
	}
	if e.Code != "" && ev.Code != e.Code {
		h.result.AddError(fmt.Sprintf("steps[%d] %s: code %q, want %q", i, st.Op, ev.Code, e.Code))
	}
	if e.Message != nil {
		if err := matchSubset(e.Message, ev.Body); err != nil {
			h.result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, st.Op, err))
		}
	}
	if e.Count != nil {
		got := -1
		if ev.Count != nil {
			got = *ev.Count
		}
		if got != *e.Count {
			h.result.AddError(fmt.Sprintf("steps[%d] %s: count %d, want %d", i, st.Op, got, *e.Count))
		}
	}
	if e.Keys != nil && !slices.Equal(e.Keys, ev.Keys) {
		h.result.AddError(fmt.Sprintf("steps[%d] %s: keys %v, want %v", i, st.Op, ev.Keys, e.Keys))
	}
}

// matchSubset checks that every field of want is present in got with an
// equal value.
func matchSubset(want map[string]any, got ir.Object) error {
	v, err := ir.FromAny(want)
	if err != nil {
		return fmt.Errorf("expected message: %w", err)
	}
	for _, k := range v.(ir.Object).SortedKeys() {
		w := v.(ir.Object)[k]
		g, ok := got[k]
		if !ok {
			return fmt.Errorf("field %q missing", k)
		}
		if !ir.Equal(w, g) {
			return fmt.Errorf("field %q: got %s, want %s", k, render(g), render(w))
		}
	}
	return nil
}

func render(v ir.Value) string {
	b, err := ir.MarshalValue(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// EvaluateAssertions checks final state and returns one message per
// failed assertion.
func EvaluateAssertions(h *Harness, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := h.evaluate(a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d] %s: %v", i, a.Type, err))
		}
	}
	return errs
}

func (h *Harness) evaluate(a Assertion) error {
	if a.Type == AssertAdvised {
		var got []string
		for _, e := range h.router.Journal() {
			got = append(got, e.Query.Action.String())
		}
		if !slices.Equal(got, a.Actions) {
			return fmt.Errorf("advised %v, want %v", got, a.Actions)
		}
		return nil
	}

	reg := h.regs[a.Reg]
	x, err := h.lookupXact(a.Xact)
	if err != nil {
		return err
	}

	switch a.Type {
	case AssertObject:
		item, err := h.client.Get(h.ctx, x, reg, member.AtXPath(a.At))
		if err != nil {
			return fmt.Errorf("%s: %w", a.At, err)
		}
		return matchSubset(a.Message, item.Message.Body)

	case AssertAbsent:
		_, err := h.client.Get(h.ctx, x, reg, member.AtXPath(a.At))
		if !member.IsNotFound(err) {
			return fmt.Errorf("%s: expected not found, got %v", a.At, err)
		}
		return nil

	case AssertCount:
		keys, err := h.list(x, reg)
		if err != nil {
			return err
		}
		if len(keys) != a.Count {
			return fmt.Errorf("%d objects %v, want %d", len(keys), keys, a.Count)
		}
		return nil

	case AssertSerial:
		if got := reg.Serial(); got != int64(a.Count) {
			return fmt.Errorf("serial %d, want %d", got, a.Count)
		}
		return nil

	case AssertKV:
		ks, err := keyspec.ParseXPath(a.At, reg.Category())
		if err != nil {
			return err
		}
		key, err := ks.Key()
		if err != nil {
			return err
		}
		if h.kv == nil {
			return fmt.Errorf("kv assertion on %s without a kv backend", a.At)
		}
		_, ok, err := h.kv.lookup(h.ctx, key)
		if err != nil {
			return err
		}
		if ok != a.Present {
			return fmt.Errorf("%s mirrored=%t, want %t", a.At, ok, a.Present)
		}
		return nil

	case AssertAudit:
		item, err := h.client.Get(h.ctx, x, reg, member.AtXPath(a.At))
		if err != nil {
			return fmt.Errorf("%s: %w", a.At, err)
		}
		got := make([]string, len(item.Audit))
		for i, e := range item.Audit {
			got[i] = e.Action.String()
		}
		if !slices.Equal(got, a.Actions) {
			return fmt.Errorf("%s audit %v, want %v", a.At, got, a.Actions)
		}
		return nil
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}
