package member

import "github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"

// overlay is one transaction's private working set. It shadows the
// committed tables of every registration the transaction touches; nothing
// in it is visible outside the transaction until CommitOverlay folds it in.
type overlay struct {
	xact   string
	tables map[*Registration]*table
	regs   []*Registration
}

func newOverlay(id string) *overlay {
	return &overlay{xact: id, tables: make(map[*Registration]*table)}
}

func (ov *overlay) table(reg *Registration) *table {
	return ov.tables[reg]
}

func (ov *overlay) get(reg *Registration, k keyspec.Key) *dataObject {
	t := ov.tables[reg]
	if t == nil {
		return nil
	}
	return t.get(k)
}

func (ov *overlay) put(o *dataObject) {
	t := ov.tables[o.reg]
	if t == nil {
		t = newTable()
		ov.tables[o.reg] = t
		ov.regs = append(ov.regs, o.reg)
	}
	t.put(o)
}

func (ov *overlay) remove(reg *Registration, k keyspec.Key) bool {
	t := ov.tables[reg]
	if t == nil {
		return false
	}
	return t.remove(k)
}

// drop forgets every entry owned by reg.
func (ov *overlay) drop(reg *Registration) {
	if _, ok := ov.tables[reg]; !ok {
		return
	}
	delete(ov.tables, reg)
	for i, r := range ov.regs {
		if r == reg {
			ov.regs = append(ov.regs[:i], ov.regs[i+1:]...)
			break
		}
	}
}

func (ov *overlay) len() int {
	n := 0
	for _, t := range ov.tables {
		n += t.len()
	}
	return n
}
