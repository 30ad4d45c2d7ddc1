// Package gowrap extracts directive-annotated Go declarations and generates a
// C ABI boundary for them: cgo entry points plus a C header of opaque handles
// and prototypes.
package gowrap

import "go/token"

// TypeDecl is one exported opaque type. Its layout is never modeled.
type TypeDecl struct {
	Name string
	Pos  token.Position
}

// Category says how a method crosses the boundary.
type Category int

const (
	Static Category = iota
	Instance
	Destructor
)

func (c Category) String() string {
	switch c {
	case Static:
		return "static"
	case Instance:
		return "instance"
	case Destructor:
		return "destructor"
	}
	return "unknown"
}

// MethodDecl represents one exported operation of an owning type.
type MethodDecl struct {
	Owner    *TypeDecl
	Name     string // exported name, used for mangling
	GoName   string // Go identifier the wrapper relays to
	Category Category
	Receiver *Param // nil iff Category == Static
	Params   []Param
	Return   *MappedType // nil when the operation returns nothing
	Pos      token.Position
}

// IsStatic reports whether the method has no receiver.
func (m *MethodDecl) IsStatic() bool {
	return m.Receiver == nil
}

// Symbol returns the mangled C symbol of the method.
func (m *MethodDecl) Symbol() string {
	return MangleSymbol(m.Owner.Name, m.Name)
}

// Param is a declared parameter with its mapped type.
type Param struct {
	Name   string
	Source string // Go type expression text
	Mapped MappedType
}

// TypeKind selects the conversion applied to a value at the boundary.
type TypeKind int

const (
	KindValue   TypeKind = iota // builtin scalar, passed by value
	KindNamed                   // other named type; declared ones convert through Native
	KindPointer                 // pointer to a builtin scalar
	KindHandle                  // pointer to a Go type, crosses as a handle
	KindOpaque                  // pre-formatted C token, passed through
)

func (k TypeKind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindNamed:
		return "named"
	case KindPointer:
		return "pointer"
	case KindHandle:
		return "handle"
	case KindOpaque:
		return "opaque"
	}
	return "unknown"
}

// MappedType is the result of mapping one Go type expression.
type MappedType struct {
	Native string // Go type written in the wrapper signature
	CLabel string // C spelling used in the header
	Kind   TypeKind
	Elem   string // pointee type name for KindPointer and KindHandle, declared name for KindNamed
}

// Converts reports whether values are converted between the declared type
// Elem and Native at the boundary.
func (mt MappedType) Converts() bool {
	return mt.Kind == KindNamed && mt.Elem != ""
}

// MethodSet is the extracted form of one operation collection.
type MethodSet struct {
	Owner   *TypeDecl
	Methods []*MethodDecl
}

// thisParam is the synthetic receiver of every instance method.
func thisParam(owner *TypeDecl) *Param {
	return &Param{
		Name:   "this",
		Source: "*" + owner.Name,
		Mapped: MappedType{
			Native: "unsafe.Pointer",
			CLabel: "void*",
			Kind:   KindHandle,
			Elem:   owner.Name,
		},
	}
}
