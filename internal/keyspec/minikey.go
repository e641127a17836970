package keyspec

import (
	"fmt"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
)

// Minikey is the compact form of a keyspec's tip keys: values only, in the
// order the tip entry declares its key fields.
type Minikey []ir.Value

// MinikeyOf extracts the tip key values of a concrete keyspec.
func MinikeyOf(ks *Keyspec) (Minikey, error) {
	tip := ks.Tip()
	if tip == nil {
		return nil, fmt.Errorf("minikey of %s: %w", ks, ErrMinikey)
	}
	mk := make(Minikey, len(tip.Keys))
	for i, k := range tip.Keys {
		if k.IsWildcard() {
			return nil, fmt.Errorf("minikey of %s: %w", ks, ErrWildcards)
		}
		mk[i] = k.Value
	}
	return mk, nil
}

// WithMinikey returns a copy of base whose tip key values are replaced
// positionally by mk.
func WithMinikey(base *Keyspec, mk Minikey) (*Keyspec, error) {
	out := base.Clone()
	tip := out.Tip()
	if tip == nil || len(tip.Keys) != len(mk) {
		return nil, fmt.Errorf("apply minikey (%d values) to %s: %w", len(mk), base, ErrMinikey)
	}
	for i := range tip.Keys {
		tip.Keys[i].Value = mk[i]
	}
	return out, nil
}
