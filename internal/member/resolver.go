package member

import (
	"errors"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
	"github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"
)

// KeyRef names the object an operation addresses, relative to a
// registration. At most one source may be set; the zero KeyRef addresses
// the registration's base keyspec itself.
type KeyRef struct {
	Entry   *keyspec.PathEntry
	Minikey keyspec.Minikey
	Keyspec *keyspec.Keyspec
	XPath   string
}

// AtEntry addresses by a path entry relative to the base keyspec.
func AtEntry(e keyspec.PathEntry) KeyRef {
	return KeyRef{Entry: &e}
}

// AtKeys is AtEntry for key fields of an entry named name.
func AtKeys(name string, keys ...keyspec.KeyField) KeyRef {
	return AtEntry(keyspec.Entry(name, keys...))
}

// AtMinikey addresses by the tip key values of the base keyspec.
func AtMinikey(vals ...ir.Value) KeyRef {
	return KeyRef{Minikey: keyspec.Minikey(vals)}
}

// AtKeyspec addresses by an absolute keyspec.
func AtKeyspec(ks *keyspec.Keyspec) KeyRef {
	return KeyRef{Keyspec: ks}
}

// AtXPath addresses by an xpath string.
func AtXPath(xpath string) KeyRef {
	return KeyRef{XPath: xpath}
}

func (k KeyRef) clone() KeyRef {
	out := KeyRef{XPath: k.XPath, Keyspec: k.Keyspec.Clone()}
	if k.Entry != nil {
		e := k.Entry.Clone()
		out.Entry = &e
	}
	if k.Minikey != nil {
		out.Minikey = append(keyspec.Minikey(nil), k.Minikey...)
	}
	return out
}

func (k KeyRef) sources() int {
	n := 0
	if k.Entry != nil {
		n++
	}
	if k.Minikey != nil {
		n++
	}
	if k.Keyspec != nil {
		n++
	}
	if k.XPath != "" {
		n++
	}
	return n
}

// XPathResolver turns an xpath string into a keyspec.
type XPathResolver interface {
	Resolve(xpath string, cat keyspec.Category) (*keyspec.Keyspec, error)
}

// XPathFunc adapts a function to XPathResolver.
type XPathFunc func(xpath string, cat keyspec.Category) (*keyspec.Keyspec, error)

func (f XPathFunc) Resolve(xpath string, cat keyspec.Category) (*keyspec.Keyspec, error) {
	return f(xpath, cat)
}

// Resolver derives absolute keyspecs from a base keyspec and a KeyRef.
type Resolver struct {
	XPath XPathResolver
}

// NewResolver returns a resolver that parses xpaths with keyspec.ParseXPath.
func NewResolver() Resolver {
	return Resolver{XPath: XPathFunc(keyspec.ParseXPath)}
}

// Derive builds the keyspec ref addresses under base. The result may hold
// wildcards; use Resolve when a concrete key is required.
//
// A path entry named like base's tip injects its key values into the tip;
// any other entry is appended as a new leaf. A minikey replaces the tip key
// values positionally. An absolute keyspec or xpath is used as is, taking
// base's category when it has none.
//
// Setting more than one source, or an absolute keyspec of another category,
// violates the caller contract and panics.
func (r Resolver) Derive(base *keyspec.Keyspec, ref KeyRef) (*keyspec.Keyspec, error) {
	if ref.sources() > 1 {
		panic("member: key reference sets more than one source")
	}

	switch {
	case ref.Entry != nil:
		return injectEntry(base, *ref.Entry)

	case ref.Minikey != nil:
		ks, err := keyspec.WithMinikey(base, ref.Minikey)
		if err != nil {
			return nil, &Error{Code: CodeOutOfBounds, Message: "minikey does not fit", Keyspec: base.String(), Err: errors.Join(ErrOutOfBounds, err)}
		}
		return ks, nil

	case ref.Keyspec != nil:
		ks := ref.Keyspec.Clone()
		adoptCategory(ks, base.Category)
		return ks, nil

	case ref.XPath != "":
		xr := r.XPath
		if xr == nil {
			xr = XPathFunc(keyspec.ParseXPath)
		}
		ks, err := xr.Resolve(ref.XPath, base.Category)
		if err != nil {
			return nil, &Error{Code: CodeInvalidInput, Message: "resolve xpath " + ref.XPath, Err: errors.Join(ErrInvalid, err)}
		}
		adoptCategory(ks, base.Category)
		return ks, nil

	default:
		return base.Clone(), nil
	}
}

// Resolve is Derive followed by the concrete-key checks: the result must
// have no wildcards and must encode to a binary key.
func (r Resolver) Resolve(base *keyspec.Keyspec, ref KeyRef) (*keyspec.Keyspec, keyspec.Key, error) {
	ks, err := r.Derive(base, ref)
	if err != nil {
		return nil, "", err
	}
	key, err := concreteKey(ks)
	if err != nil {
		return nil, "", err
	}
	return ks, key, nil
}

func concreteKey(ks *keyspec.Keyspec) (keyspec.Key, error) {
	if ks.HasWildcards() {
		return "", &Error{Code: CodeKeyWildcards, Message: "concrete key required", Keyspec: ks.String(), Err: keyspec.ErrWildcards}
	}
	key, err := ks.Key()
	if err != nil {
		return "", &Error{Code: CodeKeyBinpath, Message: "encode key", Keyspec: ks.String(), Err: err}
	}
	return key, nil
}

func adoptCategory(ks *keyspec.Keyspec, cat keyspec.Category) {
	switch ks.Category {
	case keyspec.CategoryAny:
		ks.Category = cat
	case cat:
	default:
		panic("member: keyspec category " + ks.Category.String() + " does not match registration category " + cat.String())
	}
}

func injectEntry(base *keyspec.Keyspec, e keyspec.PathEntry) (*keyspec.Keyspec, error) {
	tip := base.Tip()
	if tip == nil || tip.Name != e.Name {
		return base.Append(e), nil
	}
	out := base.Clone()
	tip = out.Tip()
	for _, k := range e.Keys {
		found := false
		for i := range tip.Keys {
			if tip.Keys[i].Name == k.Name {
				if !k.IsWildcard() {
					tip.Keys[i].Value = k.Value
				}
				found = true
				break
			}
		}
		if !found {
			return nil, &Error{Code: CodeKeyAppend, Message: "entry " + e.Name + " has no key " + k.Name, Keyspec: base.String(), Err: ErrInvalid}
		}
	}
	return out, nil
}
