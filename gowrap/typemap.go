package gowrap

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
)

// scalarCTypes maps the C-safe Go builtins to their C spelling.
var scalarCTypes = map[string]string{
	"bool":    "bool",
	"int8":    "int8_t",
	"int16":   "int16_t",
	"int32":   "int32_t",
	"int64":   "int64_t",
	"uint8":   "uint8_t",
	"uint16":  "uint16_t",
	"uint32":  "uint32_t",
	"uint64":  "uint64_t",
	"byte":    "uint8_t",
	"rune":    "int32_t",
	"int":     "ptrdiff_t",
	"uint":    "size_t",
	"uintptr": "uintptr_t",
	"float32": "float",
	"float64": "double",
}

// unsafeBuiltins are predeclared types with no C-compatible representation.
var unsafeBuiltins = map[string]bool{
	"string":     true,
	"error":      true,
	"any":        true,
	"complex64":  true,
	"complex128": true,
}

// TypeMapper maps Go type expressions onto the boundary. It only knows a
// closed set of shapes and refuses everything else. Results are cached by
// type text for the lifetime of the mapper.
type TypeMapper struct {
	cache map[string]MappedType
	local map[string]ast.Expr
}

// NewTypeMapper returns a mapper with an empty cache.
func NewTypeMapper() *TypeMapper {
	return &TypeMapper{cache: make(map[string]MappedType)}
}

// Declare registers the package-level type declarations of the package
// being mapped and clears the cache. A declared named type crosses the
// boundary as its underlying scalar and keeps its name in the header;
// declared structs and other composites are refused when used by value.
func (m *TypeMapper) Declare(types map[string]ast.Expr) {
	m.local = types
	m.cache = make(map[string]MappedType)
}

// Map maps expr. pos is only used for diagnostics.
func (m *TypeMapper) Map(expr ast.Expr, pos token.Position) (MappedType, error) {
	text := types.ExprString(expr)
	if mt, ok := m.cache[text]; ok {
		return mt, nil
	}
	mt, ok := m.mapExpr(expr)
	if !ok {
		return MappedType{}, newError(ErrUnsupportedType, pos, text)
	}
	m.cache[text] = mt
	return mt, nil
}

// MapString parses src as a type expression and maps it.
func (m *TypeMapper) MapString(src string) (MappedType, error) {
	if mt, ok := m.cache[src]; ok {
		return mt, nil
	}
	expr, err := parser.ParseExpr(src)
	if err != nil {
		return MappedType{}, &Error{Kind: ErrUnsupportedType, Subject: src, Err: err}
	}
	return m.Map(expr, token.Position{})
}

// Cached reports how many distinct type texts have been mapped.
func (m *TypeMapper) Cached() int {
	return len(m.cache)
}

func (m *TypeMapper) mapExpr(expr ast.Expr) (MappedType, bool) {
	if ident, ok := expr.(*ast.Ident); ok {
		if decl, ok := m.local[ident.Name]; ok {
			return m.mapDeclared(ident.Name, decl)
		}
	}
	return mapTypeExpr(expr)
}

// mapDeclared follows a chain of local named types down to a type
// expression that is not a local name, and accepts it only if that is a
// scalar or a pass-through token.
func (m *TypeMapper) mapDeclared(name string, decl ast.Expr) (MappedType, bool) {
	seen := map[string]bool{name: true}
	for {
		ident, ok := decl.(*ast.Ident)
		if !ok {
			break
		}
		next, ok := m.local[ident.Name]
		if !ok {
			break
		}
		if seen[ident.Name] {
			return MappedType{}, false
		}
		seen[ident.Name] = true
		decl = next
	}

	under, ok := mapTypeExpr(decl)
	if !ok || (under.Kind != KindValue && under.Kind != KindOpaque) {
		return MappedType{}, false
	}
	return MappedType{Native: under.Native, CLabel: name, Kind: KindNamed, Elem: name}, true
}

func mapTypeExpr(expr ast.Expr) (MappedType, bool) {
	switch e := expr.(type) {
	case *ast.Ident:
		if c, ok := scalarCTypes[e.Name]; ok {
			return MappedType{Native: e.Name, CLabel: c, Kind: KindValue}, true
		}
		if unsafeBuiltins[e.Name] {
			return MappedType{}, false
		}
		return MappedType{Native: e.Name, CLabel: e.Name, Kind: KindNamed}, true

	case *ast.StarExpr:
		switch x := e.X.(type) {
		case *ast.Ident:
			if c, ok := scalarCTypes[x.Name]; ok {
				return MappedType{Native: "*" + x.Name, CLabel: c + " *", Kind: KindPointer, Elem: x.Name}, true
			}
			if unsafeBuiltins[x.Name] {
				return MappedType{}, false
			}
			return MappedType{Native: "unsafe.Pointer", CLabel: x.Name + " *", Kind: KindHandle, Elem: x.Name}, true
		case *ast.SelectorExpr:
			if name, ok := cgoToken(x); ok {
				return MappedType{Native: "*C." + name, CLabel: cLabelForSelector(name) + " *", Kind: KindOpaque}, true
			}
		}

	case *ast.SelectorExpr:
		if isUnsafePointer(e) {
			return MappedType{Native: "unsafe.Pointer", CLabel: "void*", Kind: KindOpaque}, true
		}
		if name, ok := cgoToken(e); ok {
			return MappedType{Native: "C." + name, CLabel: cLabelForSelector(name), Kind: KindOpaque}, true
		}
	}
	return MappedType{}, false
}

func cgoToken(sel *ast.SelectorExpr) (string, bool) {
	pkg, ok := sel.X.(*ast.Ident)
	if !ok || pkg.Name != "C" {
		return "", false
	}
	return sel.Sel.Name, true
}

func isUnsafePointer(sel *ast.SelectorExpr) bool {
	pkg, ok := sel.X.(*ast.Ident)
	return ok && pkg.Name == "unsafe" && sel.Sel.Name == "Pointer"
}
