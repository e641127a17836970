package harness

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
)

// Snapshot renders a trace as one canonical JSON object per line, headed
// by the scenario name.
func Snapshot(name string, trace []TraceEvent) ([]byte, error) {
	var buf bytes.Buffer
	head, err := ir.MarshalCanonical(ir.Obj(ir.F("scenario", ir.String(name))))
	if err != nil {
		return nil, err
	}
	buf.Write(head)
	buf.WriteByte('\n')
	for _, ev := range trace {
		line, err := ir.MarshalCanonical(ev.value())
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func (ev TraceEvent) value() ir.Object {
	obj := ir.Obj(
		ir.F("seq", ir.Int(ev.Seq)),
		ir.F("op", ir.String(ev.Op)),
		ir.F("status", ir.String(ev.Status)),
	)
	set := func(k, v string) {
		if v != "" {
			obj[k] = ir.String(v)
		}
	}
	set("reg", ev.Reg)
	set("xact", ev.Xact)
	set("at", ev.At)
	set("code", ev.Code)
	if ev.Body != nil {
		obj["body"] = ev.Body
	}
	if ev.Count != nil {
		obj["count"] = ir.Int(*ev.Count)
	}
	if ev.Keys != nil {
		obj["keys"] = ir.Strings(ev.Keys...)
	}
	if len(ev.Advised) > 0 {
		obj["advised"] = ir.Strings(ev.Advised...)
	}
	return obj
}

// RunWithGolden runs s and compares its trace with
// testdata/golden/<name>.golden. Regenerate with
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, s *Scenario, opts ...Option) (*Result, error) {
	t.Helper()
	res, err := Run(s, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, s.Name, res); err != nil {
		return nil, err
	}
	return res, nil
}

// AssertGolden compares an existing result's trace with its golden file.
func AssertGolden(t *testing.T, name string, res *Result) error {
	t.Helper()
	data, err := Snapshot(name, res.Trace)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
