package keyspec

import (
	"fmt"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
)

// A message body anchored at keyspec K represents the object at K's tip.
// A child entry E is carried in the body as field E.Name: a list of objects
// when E has key fields (each element carries its own key leaves), or a
// single nested object when it does not.

// Fragment is a message body anchored at a concrete keyspec.
type Fragment struct {
	Keyspec *Keyspec
	Body    ir.Object
}

// Children walks body, anchored at at, down to the depth of target and
// returns every fragment whose path matches target. Wildcard keys in target
// match every element; the returned keyspecs are concrete, with key values
// read from the elements. A body whose anchor does not match target's
// prefix yields no fragments. Fragment bodies alias body.
func Children(at *Keyspec, body ir.Object, target *Keyspec) ([]Fragment, error) {
	if target.Depth() <= at.Depth() {
		return nil, fmt.Errorf("children of %s at %s: %w", at, target, ErrDepth)
	}
	prefix, err := target.Truncate(at.Depth())
	if err != nil {
		return nil, err
	}
	if !at.Matches(prefix) {
		return nil, nil
	}

	frontier := []Fragment{{Keyspec: at.Clone(), Body: body}}
	for i := at.Depth(); i < target.Depth(); i++ {
		te := target.Entries[i]
		var next []Fragment
		for _, f := range frontier {
			v, ok := f.Body[te.Name]
			if !ok {
				continue
			}
			switch val := v.(type) {
			case ir.List:
				for _, elem := range val {
					obj, ok := elem.(ir.Object)
					if !ok || !elementMatches(te, obj) {
						continue
					}
					if e, ok := concreteEntry(te, obj); ok {
						next = append(next, Fragment{Keyspec: f.Keyspec.Append(e), Body: obj})
					}
				}
			case ir.Object:
				if !elementMatches(te, val) {
					continue
				}
				if e, ok := concreteEntry(te, val); ok {
					next = append(next, Fragment{Keyspec: f.Keyspec.Append(e), Body: val})
				}
			}
		}
		frontier = next
	}
	return frontier, nil
}

// Wrap reroots body, anchored at at, onto the ancestor at depth: each
// level is nested inside its parent with its key leaves injected. The
// returned keyspec is at truncated to depth.
func Wrap(at *Keyspec, body ir.Object, depth int) (Fragment, error) {
	ks, err := at.Truncate(depth)
	if err != nil {
		return Fragment{}, err
	}
	cur := body.Clone()
	if cur == nil {
		cur = ir.Object{}
	}
	for i := at.Depth() - 1; i >= depth; i-- {
		e := at.Entries[i]
		for _, k := range e.Keys {
			if k.IsWildcard() {
				return Fragment{}, fmt.Errorf("wrap %s: %w", at, ErrWildcards)
			}
			cur[k.Name] = k.Value
		}
		if len(e.Keys) > 0 {
			cur = ir.Object{e.Name: ir.List{cur}}
		} else {
			cur = ir.Object{e.Name: cur}
		}
	}
	return Fragment{Keyspec: ks, Body: cur}, nil
}

// DeleteAt removes the sub-field addressed by rel (path entries relative to
// body) and reports whether anything was removed. A keyed final entry
// removes only the matching list elements; an unkeyed one removes the field.
func DeleteAt(body ir.Object, rel []PathEntry) bool {
	if len(rel) == 0 || body == nil {
		return false
	}
	e := rel[0]
	v, ok := body[e.Name]
	if !ok {
		return false
	}
	last := len(rel) == 1

	switch val := v.(type) {
	case ir.List:
		if last {
			if len(e.Keys) == 0 {
				delete(body, e.Name)
				return true
			}
			kept := make(ir.List, 0, len(val))
			for _, elem := range val {
				if obj, ok := elem.(ir.Object); ok && elementMatches(e, obj) {
					continue
				}
				kept = append(kept, elem)
			}
			if len(kept) == len(val) {
				return false
			}
			if len(kept) == 0 {
				delete(body, e.Name)
			} else {
				body[e.Name] = kept
			}
			return true
		}
		removed := false
		for _, elem := range val {
			if obj, ok := elem.(ir.Object); ok && elementMatches(e, obj) {
				if DeleteAt(obj, rel[1:]) {
					removed = true
				}
			}
		}
		return removed
	case ir.Object:
		if !elementMatches(e, val) {
			return false
		}
		if last {
			delete(body, e.Name)
			return true
		}
		return DeleteAt(val, rel[1:])
	default:
		if last {
			delete(body, e.Name)
			return true
		}
		return false
	}
}

func elementMatches(e PathEntry, obj ir.Object) bool {
	for _, k := range e.Keys {
		if k.IsWildcard() {
			continue
		}
		v, ok := obj[k.Name]
		if !ok || !ir.Equal(v, k.Value) {
			return false
		}
	}
	return true
}

// concreteEntry fills e's key values from obj. It fails if obj lacks a key.
func concreteEntry(e PathEntry, obj ir.Object) (PathEntry, bool) {
	out := PathEntry{Name: e.Name, Keys: make([]KeyField, len(e.Keys))}
	for i, k := range e.Keys {
		v, ok := obj[k.Name]
		if !ok {
			return PathEntry{}, false
		}
		out.Keys[i] = KeyField{Name: k.Name, Value: v}
	}
	return out, true
}
