package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// CompileError is a schema error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileString compiles CUE source holding message declarations.
func CompileString(src string) (*Registry, error) {
	v := cuecontext.New().CompileString(src)
	return Compile(v)
}

// Load compiles every CUE file of the package in dir.
func Load(dir string) (*Registry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("schema directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("schema directory: %s is not a directory", dir)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	if inst := instances[0]; inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}
	v := cuecontext.New().BuildInstance(instances[0])
	return Compile(v)
}

// Compile extracts message declarations from the message field of v.
func Compile(v cue.Value) (*Registry, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	reg := NewRegistry()

	msgs := v.LookupPath(cue.ParsePath("message"))
	if !msgs.Exists() {
		return reg, nil
	}
	iter, err := msgs.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		t, err := compileType(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		reg.register(t)
	}
	return reg, nil
}

func compileType(name string, v cue.Value) (*Type, error) {
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{
			Field:   name,
			Message: "message type must be a struct",
			Pos:     v.Pos(),
		}
	}
	t := newType(name)
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		f, err := compileField(name, iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		t.add(f)
	}
	return t, nil
}

func compileField(owner, name string, v cue.Value) (Field, error) {
	keyAttr := v.Attribute("key")
	f := Field{Name: name, Key: keyAttr.Err() == nil}
	kind, err := kindOf(owner+"."+name, v)
	if err != nil {
		return Field{}, err
	}
	f.Kind = kind

	switch kind {
	case KindObject:
		nested, err := compileType(owner+"."+name, v)
		if err != nil {
			return Field{}, err
		}
		f.Type = nested
	case KindList:
		elem := v.LookupPath(cue.MakePath(cue.AnyIndex))
		if !elem.Exists() {
			return Field{}, &CompileError{
				Field:   owner + "." + name,
				Message: "list must declare an element type, e.g. [...string]",
				Pos:     v.Pos(),
			}
		}
		f.Elem, err = kindOf(owner+"."+name+"[]", elem)
		if err != nil {
			return Field{}, err
		}
		if f.Elem == KindObject {
			f.Type, err = compileType(owner+"."+name, elem)
			if err != nil {
				return Field{}, err
			}
		}
	}
	return f, nil
}

// kindOf maps a CUE kind to a field kind. Floats are forbidden.
func kindOf(field string, v cue.Value) (Kind, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return KindString, nil
	case cue.IntKind:
		return KindInt, nil
	case cue.BoolKind:
		return KindBool, nil
	case cue.ListKind:
		return KindList, nil
	case cue.StructKind:
		return KindObject, nil
	case cue.FloatKind, cue.NumberKind:
		return 0, &CompileError{
			Field:   field,
			Message: "float types are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return 0, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
