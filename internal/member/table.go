package member

import "github.com/RIFTIO/RIFT.ware-sub004/internal/keyspec"

// table maps keys to objects and remembers insertion order, which is the
// iteration order of GetNext.
type table struct {
	objs  map[keyspec.Key]*dataObject
	order []keyspec.Key
}

func newTable() *table {
	return &table{objs: make(map[keyspec.Key]*dataObject)}
}

func (t *table) get(k keyspec.Key) *dataObject {
	return t.objs[k]
}

// put stores o, replacing any object with the same key in place.
func (t *table) put(o *dataObject) {
	if _, ok := t.objs[o.key]; !ok {
		t.order = append(t.order, o.key)
	}
	t.objs[o.key] = o
}

func (t *table) remove(k keyspec.Key) bool {
	i := t.indexOf(k)
	if i < 0 {
		return false
	}
	delete(t.objs, k)
	t.order = append(t.order[:i], t.order[i+1:]...)
	return true
}

// indexOf returns the position of k in insertion order, or -1.
func (t *table) indexOf(k keyspec.Key) int {
	if _, ok := t.objs[k]; !ok {
		return -1
	}
	for i, key := range t.order {
		if key == k {
			return i
		}
	}
	return -1
}

// insert puts o at position i of the iteration order. An object already
// stored under o's key is replaced in place.
func (t *table) insert(i int, o *dataObject) {
	if _, ok := t.objs[o.key]; ok {
		t.objs[o.key] = o
		return
	}
	i = max(0, min(i, len(t.order)))
	t.order = append(t.order, "")
	copy(t.order[i+1:], t.order[i:])
	t.order[i] = o.key
	t.objs[o.key] = o
}

func (t *table) len() int {
	return len(t.order)
}

// at returns the i-th object in insertion order.
func (t *table) at(i int) *dataObject {
	if i < 0 || i >= len(t.order) {
		return nil
	}
	return t.objs[t.order[i]]
}

// objects returns a snapshot of the objects in insertion order, so callers
// may mutate the table while iterating.
func (t *table) objects() []*dataObject {
	out := make([]*dataObject, len(t.order))
	for i, k := range t.order {
		out[i] = t.objs[k]
	}
	return out
}
