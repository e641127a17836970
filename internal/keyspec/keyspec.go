package keyspec

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
)

// Sentinel errors for keyspec derivation.
var (
	ErrWildcards = errors.New("keyspec has wildcards")
	ErrBinpath   = errors.New("keyspec cannot be encoded")
	ErrDepth     = errors.New("keyspec depth out of range")
	ErrMinikey   = errors.New("minikey does not fit keyspec tip")
	ErrXPath     = errors.New("invalid xpath")
)

// Key is the binary form of a concrete keyspec. It is comparable and used
// directly as a map key; two keyspecs address the same object iff their
// Keys are equal.
type Key string

// KeyField is one key leaf of a list entry. A nil Value is a wildcard.
type KeyField struct {
	Name  string
	Value ir.Value
}

// K builds a concrete key field.
func K(name string, v ir.Value) KeyField {
	return KeyField{Name: name, Value: v}
}

// Wild builds a wildcard key field.
func Wild(name string) KeyField {
	return KeyField{Name: name}
}

// IsWildcard reports whether the field matches any value.
func (f KeyField) IsWildcard() bool {
	return f.Value == nil
}

// PathEntry is one step of a keyspec. Entries with key fields address list
// elements; entries without keys address containers or leaves.
type PathEntry struct {
	Name string
	Keys []KeyField
}

// Entry builds a path entry.
func Entry(name string, keys ...KeyField) PathEntry {
	return PathEntry{Name: name, Keys: keys}
}

// Clone returns a copy that shares no key slice with e.
func (e PathEntry) Clone() PathEntry {
	return PathEntry{Name: e.Name, Keys: slices.Clone(e.Keys)}
}

// HasWildcards reports whether any key field is a wildcard.
func (e PathEntry) HasWildcards() bool {
	for _, k := range e.Keys {
		if k.IsWildcard() {
			return true
		}
	}
	return false
}

// Key returns the value of the named key field.
func (e PathEntry) Key(name string) (ir.Value, bool) {
	for _, k := range e.Keys {
		if k.Name == name {
			return k.Value, true
		}
	}
	return nil, false
}

// matches compares two entries by name and key values. A wildcard on
// either side matches any value; a key present on only one side matches.
func (e PathEntry) matches(other PathEntry) bool {
	if e.Name != other.Name {
		return false
	}
	for _, k := range e.Keys {
		ov, ok := other.Key(k.Name)
		if !ok || k.IsWildcard() || ov == nil {
			continue
		}
		if !ir.Equal(k.Value, ov) {
			return false
		}
	}
	return true
}

// Keyspec is a hierarchical path address of a structured object.
type Keyspec struct {
	Category Category
	Entries  []PathEntry
}

// New builds a keyspec from entries. Entries are copied.
func New(cat Category, entries ...PathEntry) *Keyspec {
	ks := &Keyspec{Category: cat, Entries: make([]PathEntry, len(entries))}
	for i, e := range entries {
		ks.Entries[i] = e.Clone()
	}
	return ks
}

// Depth is the number of path entries.
func (ks *Keyspec) Depth() int {
	return len(ks.Entries)
}

// Clone returns a deep copy.
func (ks *Keyspec) Clone() *Keyspec {
	if ks == nil {
		return nil
	}
	return New(ks.Category, ks.Entries...)
}

// Tip returns the last entry, or nil for an empty keyspec.
func (ks *Keyspec) Tip() *PathEntry {
	if len(ks.Entries) == 0 {
		return nil
	}
	return &ks.Entries[len(ks.Entries)-1]
}

// HasWildcards reports whether any entry has a wildcard key.
func (ks *Keyspec) HasWildcards() bool {
	for _, e := range ks.Entries {
		if e.HasWildcards() {
			return true
		}
	}
	return false
}

// Append returns a new keyspec with e added as the new tip.
func (ks *Keyspec) Append(e PathEntry) *Keyspec {
	out := ks.Clone()
	out.Entries = append(out.Entries, e.Clone())
	return out
}

// Truncate returns a copy holding only the first depth entries.
func (ks *Keyspec) Truncate(depth int) (*Keyspec, error) {
	if depth < 0 || depth > len(ks.Entries) {
		return nil, fmt.Errorf("truncate %s to %d: %w", ks, depth, ErrDepth)
	}
	return New(ks.Category, ks.Entries[:depth]...), nil
}

// IsSubKeyspecOf reports whether ks lies at or below query: query is no
// deeper than ks and each query entry matches the entry at the same depth.
// Wildcards in either keyspec match any value.
func (ks *Keyspec) IsSubKeyspecOf(query *Keyspec) bool {
	if query.Depth() > ks.Depth() {
		return false
	}
	for i, qe := range query.Entries {
		if !qe.matches(ks.Entries[i]) {
			return false
		}
	}
	return true
}

// Matches reports whether both keyspecs have the same depth and every entry
// matches, honoring wildcards on either side.
func (ks *Keyspec) Matches(other *Keyspec) bool {
	return ks.Depth() == other.Depth() && ks.IsSubKeyspecOf(other)
}

// Binpath returns the canonical binary encoding. Wildcarded keyspecs and
// keys without a canonical form cannot be encoded.
func (ks *Keyspec) Binpath() ([]byte, error) {
	if ks.HasWildcards() {
		return nil, fmt.Errorf("binpath %s: %w", ks, ErrWildcards)
	}
	path := make(ir.List, len(ks.Entries))
	for i, e := range ks.Entries {
		keys := make(ir.Object, len(e.Keys))
		for _, k := range e.Keys {
			keys[k.Name] = k.Value
		}
		path[i] = ir.Obj(ir.F("n", ir.String(e.Name)), ir.F("k", keys))
	}
	b, err := ir.MarshalCanonical(path)
	if err != nil {
		return nil, fmt.Errorf("binpath %s: %w: %v", ks, ErrBinpath, err)
	}
	return b, nil
}

// Key returns the comparable binary key.
func (ks *Keyspec) Key() (Key, error) {
	b, err := ks.Binpath()
	if err != nil {
		return "", err
	}
	return Key(b), nil
}

// MustKey is like Key but panics on error.
// Use only in tests or when the keyspec is known to be concrete.
func (ks *Keyspec) MustKey() Key {
	k, err := ks.Key()
	if err != nil {
		panic(err)
	}
	return k
}

// String renders the keyspec in xpath form, e.g. /car[brand='Toyota']/models.
func (ks *Keyspec) String() string {
	if ks == nil {
		return "<nil>"
	}
	if len(ks.Entries) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, e := range ks.Entries {
		b.WriteByte('/')
		b.WriteString(e.Name)
		for _, k := range e.Keys {
			b.WriteByte('[')
			b.WriteString(k.Name)
			b.WriteByte('=')
			b.WriteString(formatKeyValue(k.Value))
			b.WriteByte(']')
		}
	}
	return b.String()
}

func formatKeyValue(v ir.Value) string {
	switch val := v.(type) {
	case nil:
		return "*"
	case ir.String:
		return "'" + strings.ReplaceAll(string(val), "'", "''") + "'"
	case ir.Int:
		return fmt.Sprintf("%d", int64(val))
	case ir.Bool:
		return fmt.Sprintf("%t", bool(val))
	default:
		return fmt.Sprintf("<%T>", v)
	}
}
