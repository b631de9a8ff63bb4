package schema

import (
	"fmt"
	"go/token"
	"strings"
)

// RefKind classifies a type reference.
type RefKind int

const (
	// KindPrimitive is one of the built-in scalar types.
	KindPrimitive RefKind = iota
	// KindNamed refers to a declared TypeDecl.
	KindNamed
	// KindList is list<T>.
	KindList
	// KindVoid marks an empty request or response.
	KindVoid
)

// Primitive type names understood by every emitter.
const (
	TypeString = "string"
	TypeBool   = "bool"
	TypeInt32  = "int32"
	TypeInt64  = "int64"
	TypeDouble = "double"
	TypeVoid   = "void"
)

var _primitives = map[string]struct{}{
	TypeString: {},
	TypeBool:   {},
	TypeInt32:  {},
	TypeInt64:  {},
	TypeDouble: {},
}

// TypeRef is a parsed type reference.
type TypeRef struct {
	Kind RefKind
	Name string
	Elem *TypeRef
}

// ParseTypeRef parses a type reference such as "string", "ProvidedType" or "list<string>".
func ParseTypeRef(ref string) (TypeRef, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return TypeRef{}, fmt.Errorf("empty type reference")
	case ref == TypeVoid:
		return TypeRef{Kind: KindVoid, Name: ref}, nil
	case strings.HasPrefix(ref, "list<") && strings.HasSuffix(ref, ">"):
		elem, err := ParseTypeRef(ref[len("list<") : len(ref)-1])
		if err != nil {
			return TypeRef{}, err
		}
		if elem.Kind == KindVoid {
			return TypeRef{}, fmt.Errorf("list of void in %q", ref)
		}
		return TypeRef{Kind: KindList, Name: ref, Elem: &elem}, nil
	}

	if _, ok := _primitives[ref]; ok {
		return TypeRef{Kind: KindPrimitive, Name: ref}, nil
	}
	if !token.IsIdentifier(ref) {
		return TypeRef{}, fmt.Errorf("invalid type reference %q", ref)
	}
	return TypeRef{Kind: KindNamed, Name: ref}, nil
}

// String returns the reference in schema notation.
func (t TypeRef) String() string {
	if t.Kind == KindList {
		return "list<" + t.Elem.String() + ">"
	}
	return t.Name
}
