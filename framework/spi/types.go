package spi

import (
	"fmt"
	"reflect"
	"strings"
)

// Kind enumerates the type descriptors a Types factory can build.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindPrimitive
	KindClass
	KindArray
	KindParameterized
	KindWildcard
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindVoid:
		return "void"
	case KindPrimitive:
		return "primitive"
	case KindClass:
		return "class"
	case KindArray:
		return "array"
	case KindParameterized:
		return "parameterized"
	case KindWildcard:
		return "wildcard"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is an immutable type descriptor. Two descriptors are the same type
// when Equal reports true; there is no identity beyond structure.
type Type struct {
	kind  Kind
	prim  reflect.Kind
	class reflect.Type
	elem  *Type
	dims  int
	args  []Type
	bound *Type
	lower bool
}

// Kind returns the descriptor kind.
func (t Type) Kind() Kind { return t.kind }

// Primitive returns the primitive kind, or reflect.Invalid for non-primitives.
func (t Type) Primitive() reflect.Kind {
	if t.kind != KindPrimitive {
		return reflect.Invalid
	}
	return t.prim
}

// Class returns the class type of a class or parameterized descriptor.
func (t Type) Class() reflect.Type { return t.class }

// Component returns the element type and dimension count of an array.
func (t Type) Component() (Type, int) {
	if t.kind != KindArray || t.elem == nil {
		return Type{}, 0
	}
	return *t.elem, t.dims
}

// Args returns a copy of the type arguments of a parameterized descriptor.
func (t Type) Args() []Type {
	if len(t.args) == 0 {
		return nil
	}
	out := make([]Type, len(t.args))
	copy(out, t.args)
	return out
}

// Bound returns the wildcard bound. ok is false for an unbounded wildcard;
// lower tells a lower bound ("? super X") from an upper one.
func (t Type) Bound() (bound Type, lower, ok bool) {
	if t.kind != KindWildcard || t.bound == nil {
		return Type{}, false, false
	}
	return *t.bound, t.lower, true
}

// Equal reports structural equality.
func (t Type) Equal(o Type) bool {
	if t.kind != o.kind {
		return false
	}
	switch t.kind {
	case KindVoid, KindInvalid:
		return true
	case KindPrimitive:
		return t.prim == o.prim
	case KindClass:
		return t.class == o.class
	case KindArray:
		return t.dims == o.dims && t.elem.Equal(*o.elem)
	case KindParameterized:
		if t.class != o.class || len(t.args) != len(o.args) {
			return false
		}
		for i := range t.args {
			if !t.args[i].Equal(o.args[i]) {
				return false
			}
		}
		return true
	case KindWildcard:
		if (t.bound == nil) != (o.bound == nil) {
			return false
		}
		if t.bound == nil {
			return true
		}
		return t.lower == o.lower && t.bound.Equal(*o.bound)
	}
	return false
}

func (t Type) String() string {
	switch t.kind {
	case KindVoid:
		return "void"
	case KindPrimitive:
		return t.prim.String()
	case KindClass:
		return t.class.String()
	case KindArray:
		return strings.Repeat("[]", t.dims) + t.elem.String()
	case KindParameterized:
		args := make([]string, len(t.args))
		for i, a := range t.args {
			args[i] = a.String()
		}
		return genericName(t.class) + "[" + strings.Join(args, ", ") + "]"
	case KindWildcard:
		if t.bound == nil {
			return "?"
		}
		if t.lower {
			return "? super " + t.bound.String()
		}
		return "? extends " + t.bound.String()
	}
	return "invalid"
}

// genericName drops instantiation arguments reflect prints for generic types.
func genericName(c reflect.Type) string {
	name := c.String()
	if i := strings.IndexByte(name, '['); i >= 0 {
		return name[:i]
	}
	return name
}

// Types builds type descriptors. A Types value is injected into callbacks
// of every phase except Discovery. Invalid arguments panic; the runner
// reports such a panic as a failure of the calling callback.
type Types interface {
	// Of maps a Go type onto the matching descriptor: nil is void, builtin
	// basic kinds are primitives, slices and arrays are arrays, pointers are
	// unwrapped, everything else is a class.
	Of(t reflect.Type) Type
	OfVoid() Type
	OfPrimitive(k reflect.Kind) Type
	OfClass(t reflect.Type) Type
	OfArray(elem Type, dimensions int) Type
	Parameterized(generic Type, args ...Type) Type
	WildcardWithUpperBound(bound Type) Type
	WildcardWithLowerBound(bound Type) Type
	WildcardUnbounded() Type
}

// NewTypes returns the stateless Types factory.
func NewTypes() Types { return typeFactory{} }

type typeFactory struct{}

var primitiveKinds = map[reflect.Kind]bool{
	reflect.Bool: true, reflect.String: true,
	reflect.Int: true, reflect.Int8: true, reflect.Int16: true, reflect.Int32: true, reflect.Int64: true,
	reflect.Uint: true, reflect.Uint8: true, reflect.Uint16: true, reflect.Uint32: true, reflect.Uint64: true,
	reflect.Uintptr: true, reflect.Float32: true, reflect.Float64: true,
	reflect.Complex64: true, reflect.Complex128: true,
}

func (typeFactory) OfVoid() Type { return Type{kind: KindVoid} }

func (typeFactory) OfPrimitive(k reflect.Kind) Type {
	if !primitiveKinds[k] {
		panic(fmt.Sprintf("spi: Types.OfPrimitive: %s is not a primitive kind", k))
	}
	return Type{kind: KindPrimitive, prim: k}
}

func (typeFactory) OfClass(t reflect.Type) Type {
	switch {
	case t == nil:
		panic("spi: Types.OfClass: nil type")
	case t.Name() == "":
		panic(fmt.Sprintf("spi: Types.OfClass: %v is not a named type", t))
	case t.PkgPath() == "" && primitiveKinds[t.Kind()]:
		panic(fmt.Sprintf("spi: Types.OfClass: %v is a primitive, use OfPrimitive", t))
	}
	return Type{kind: KindClass, class: t}
}

func (typeFactory) OfArray(elem Type, dimensions int) Type {
	if dimensions < 1 {
		panic(fmt.Sprintf("spi: Types.OfArray: dimensions must be >= 1, got %d", dimensions))
	}
	switch elem.kind {
	case KindInvalid, KindVoid, KindWildcard:
		panic(fmt.Sprintf("spi: Types.OfArray: %s cannot be an array element", elem.kind))
	case KindArray:
		// Flatten so [][]T built in two steps equals [][]T built in one.
		return Type{kind: KindArray, elem: elem.elem, dims: elem.dims + dimensions}
	}
	e := elem
	return Type{kind: KindArray, elem: &e, dims: dimensions}
}

func (typeFactory) Parameterized(generic Type, args ...Type) Type {
	if generic.kind != KindClass {
		panic(fmt.Sprintf("spi: Types.Parameterized: generic type must be a class, got %s", generic.kind))
	}
	if len(args) == 0 {
		panic("spi: Types.Parameterized: at least one type argument is required")
	}
	for i, a := range args {
		if a.kind == KindInvalid || a.kind == KindVoid {
			panic(fmt.Sprintf("spi: Types.Parameterized: argument %d is %s", i, a.kind))
		}
	}
	cp := make([]Type, len(args))
	copy(cp, args)
	return Type{kind: KindParameterized, class: generic.class, args: cp}
}

func (f typeFactory) WildcardWithUpperBound(bound Type) Type { return f.wildcard(bound, false) }

func (f typeFactory) WildcardWithLowerBound(bound Type) Type { return f.wildcard(bound, true) }

func (typeFactory) WildcardUnbounded() Type { return Type{kind: KindWildcard} }

func (typeFactory) wildcard(bound Type, lower bool) Type {
	switch bound.kind {
	case KindClass, KindArray, KindParameterized:
	default:
		panic(fmt.Sprintf("spi: Types: wildcard bound must be a reference type, got %s", bound.kind))
	}
	b := bound
	return Type{kind: KindWildcard, bound: &b, lower: lower}
}

func (f typeFactory) Of(t reflect.Type) Type {
	if t == nil {
		return f.OfVoid()
	}
	switch t.Kind() {
	case reflect.Pointer:
		return f.Of(t.Elem())
	case reflect.Slice, reflect.Array:
		return f.OfArray(f.Of(t.Elem()), 1)
	}
	if t.PkgPath() == "" && primitiveKinds[t.Kind()] {
		return f.OfPrimitive(t.Kind())
	}
	return f.OfClass(t)
}
