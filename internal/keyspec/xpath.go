package keyspec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
)

// ParseXPath parses the subset of xpath used for member data keys:
//
//	/car[brand='Toyota']/model[name="Camry"][year=2024]/engine
//
// Predicate values are quoted strings, integers, true/false, or * for a
// wildcard. Quotes inside a value are doubled.
func ParseXPath(s string, cat Category) (*Keyspec, error) {
	if !strings.HasPrefix(s, "/") {
		return nil, fmt.Errorf("%w %q: must start with /", ErrXPath, s)
	}
	p := &xpathParser{src: s, pos: 0}
	ks := &Keyspec{Category: cat}
	for p.pos < len(p.src) {
		if p.src[p.pos] != '/' {
			return nil, p.errorf("expected /")
		}
		p.pos++
		entry, err := p.entry()
		if err != nil {
			return nil, err
		}
		ks.Entries = append(ks.Entries, entry)
	}
	return ks, nil
}

// MustParse is like ParseXPath but panics on error.
// Use only in tests or with constant paths.
func MustParse(s string, cat Category) *Keyspec {
	ks, err := ParseXPath(s, cat)
	if err != nil {
		panic(err)
	}
	return ks
}

type xpathParser struct {
	src string
	pos int
}

func (p *xpathParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w %q at %d: %s", ErrXPath, p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *xpathParser) ident() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '/' || c == '[' || c == ']' || c == '=' {
			break
		}
		p.pos++
	}
	return strings.TrimSpace(p.src[start:p.pos])
}

func (p *xpathParser) entry() (PathEntry, error) {
	name := p.ident()
	if name == "" {
		return PathEntry{}, p.errorf("empty path entry")
	}
	e := PathEntry{Name: name}
	for p.pos < len(p.src) && p.src[p.pos] == '[' {
		p.pos++
		key := p.ident()
		if key == "" {
			return PathEntry{}, p.errorf("empty key name")
		}
		if p.pos >= len(p.src) || p.src[p.pos] != '=' {
			return PathEntry{}, p.errorf("expected =")
		}
		p.pos++
		v, err := p.value()
		if err != nil {
			return PathEntry{}, err
		}
		if p.pos >= len(p.src) || p.src[p.pos] != ']' {
			return PathEntry{}, p.errorf("expected ]")
		}
		p.pos++
		e.Keys = append(e.Keys, KeyField{Name: key, Value: v})
	}
	return e, nil
}

func (p *xpathParser) value() (ir.Value, error) {
	if p.pos >= len(p.src) {
		return nil, p.errorf("missing value")
	}
	if q := p.src[p.pos]; q == '\'' || q == '"' {
		p.pos++
		var b strings.Builder
		for p.pos < len(p.src) {
			c := p.src[p.pos]
			if c == q {
				if p.pos+1 < len(p.src) && p.src[p.pos+1] == q {
					b.WriteByte(q)
					p.pos += 2
					continue
				}
				p.pos++
				return ir.String(b.String()), nil
			}
			b.WriteByte(c)
			p.pos++
		}
		return nil, p.errorf("unterminated string")
	}

	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != ']' {
		p.pos++
	}
	raw := strings.TrimSpace(p.src[start:p.pos])
	switch raw {
	case "*":
		return nil, nil
	case "true":
		return ir.Bool(true), nil
	case "false":
		return ir.Bool(false), nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, p.errorf("bad value %q", raw)
	}
	return ir.Int(n), nil
}
