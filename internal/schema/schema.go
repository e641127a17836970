package schema

import (
	"fmt"
	"sort"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/ir"
)

// Kind is the value kind a field declares.
type Kind int

const (
	KindString Kind = iota + 1
	KindInt
	KindBool
	KindList
	KindObject
)

var kindNames = map[Kind]string{
	KindString: "string",
	KindInt:    "int",
	KindBool:   "bool",
	KindList:   "list",
	KindObject: "object",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Field is one declared field. Object fields and lists of objects carry
// their nested Type; Elem is the element kind of a list.
type Field struct {
	Name string
	Kind Kind
	Elem Kind
	Type *Type
	Key  bool
}

// Type is a declared message or nested object type.
type Type struct {
	Name   string
	Fields []Field
	index  map[string]int
}

func newType(name string) *Type {
	return &Type{Name: name, index: make(map[string]int)}
}

func (t *Type) add(f Field) {
	t.index[f.Name] = len(t.Fields)
	t.Fields = append(t.Fields, f)
}

// Field looks up a declared field by name.
func (t *Type) Field(name string) (Field, bool) {
	i, ok := t.index[name]
	if !ok {
		return Field{}, false
	}
	return t.Fields[i], true
}

// Keys returns the names of key fields in declaration order.
func (t *Type) Keys() []string {
	var keys []string
	for _, f := range t.Fields {
		if f.Key {
			keys = append(keys, f.Name)
		}
	}
	return keys
}

// StripUnknown removes undeclared fields from obj, recursing into nested
// objects and lists of objects, and returns the dotted paths it removed in
// sorted order. obj is modified in place.
func (t *Type) StripUnknown(obj ir.Object) []string {
	var stripped []string
	t.strip(obj, "", &stripped)
	sort.Strings(stripped)
	return stripped
}

func (t *Type) strip(obj ir.Object, prefix string, out *[]string) {
	for name, v := range obj {
		path := prefix + name
		f, ok := t.Field(name)
		if !ok {
			delete(obj, name)
			*out = append(*out, path)
			continue
		}
		if f.Type == nil {
			continue
		}
		switch val := v.(type) {
		case ir.Object:
			f.Type.strip(val, path+".", out)
		case ir.List:
			for i, elem := range val {
				if o, ok := elem.(ir.Object); ok {
					f.Type.strip(o, fmt.Sprintf("%s[%d].", path, i), out)
				}
			}
		}
	}
}

// Registry holds the declared message types by name.
type Registry struct {
	types map[string]*Type
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*Type)}
}

func (r *Registry) register(t *Type) {
	if _, ok := r.types[t.Name]; !ok {
		r.order = append(r.order, t.Name)
	}
	r.types[t.Name] = t
}

// Lookup returns the named message type.
func (r *Registry) Lookup(name string) (*Type, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.types[name]
	return t, ok
}

// Names returns declared message type names in declaration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of declared message types.
func (r *Registry) Len() int {
	return len(r.order)
}

// Strip removes fields the message's declared type does not know and
// returns their paths. Messages of an undeclared type are left untouched.
func (r *Registry) Strip(m *ir.Message) []string {
	if m == nil || m.Body == nil {
		return nil
	}
	t, ok := r.Lookup(m.Type)
	if !ok {
		return nil
	}
	return t.StripUnknown(m.Body)
}
