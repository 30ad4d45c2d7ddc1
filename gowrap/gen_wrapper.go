package gowrap

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"
)

// RuntimeImportPath is the package generated wrappers import for handle
// resolution and null checks.
const RuntimeImportPath = "github.com/chazu/cabigen/ffirt"

// cgoPreamble makes the C integer names used in the header available to
// the cgo-generated export header as well.
const cgoPreamble = "#include <stdbool.h>\n#include <stddef.h>\n#include <stdint.h>"

// WrapperEmitter renders one cgo entry point per exported operation into a
// single Go file of the source package.
type WrapperEmitter struct {
	file      *jen.File
	lifecycle bool
	symbols   []string
}

// NewWrapperEmitter returns an emitter for package pkg. With lifecycle set,
// every record also gets _new and _destroy entry points.
func NewWrapperEmitter(pkg string, lifecycle bool) *WrapperEmitter {
	f := jen.NewFile(pkg)
	f.HeaderComment("Code generated by cabigen. DO NOT EDIT.")
	f.CgoPreamble(cgoPreamble)
	f.ImportName(RuntimeImportPath, "ffirt")
	return &WrapperEmitter{file: f, lifecycle: lifecycle}
}

// VisitType emits lifecycle entry points when enabled. Types otherwise need
// no Go code: they cross the boundary as handles.
func (w *WrapperEmitter) VisitType(t *TypeDecl) error {
	if !w.lifecycle {
		return nil
	}
	ctor, dtor := LifecycleSymbols(t.Name)

	w.export(ctor)
	w.file.Func().Id(ctor).Params().Qual("unsafe", "Pointer").Block(
		jen.Return(jen.Qual(RuntimeImportPath, "New").Call(jen.New(jen.Id(t.Name)))),
	)

	w.export(dtor)
	w.file.Func().Id(dtor).Params(jen.Id("this").Qual("unsafe", "Pointer")).Block(
		jen.Qual(RuntimeImportPath, "Release").Types(jen.Id(t.Name)).Call(jen.Id("this"), jen.Lit(dtor)),
	)
	return nil
}

// VisitMethods emits one relay or destructor per method.
func (w *WrapperEmitter) VisitMethods(set *MethodSet) error {
	for _, m := range set.Methods {
		if m.Category == Destructor {
			w.destructor(m)
		} else {
			w.relay(m)
		}
	}
	return nil
}

// Symbols returns the exported symbols in emission order.
func (w *WrapperEmitter) Symbols() []string {
	return w.symbols
}

// Render formats the generated file.
func (w *WrapperEmitter) Render() ([]byte, error) {
	var buf bytes.Buffer
	if err := w.file.Render(&buf); err != nil {
		return nil, fmt.Errorf("rendering wrappers: %w", err)
	}
	return buf.Bytes(), nil
}

func (w *WrapperEmitter) export(symbol string) {
	w.file.Line()
	w.file.Comment("//export " + symbol)
	w.symbols = append(w.symbols, symbol)
}

func (w *WrapperEmitter) relay(m *MethodDecl) {
	sym := m.Symbol()
	var (
		params []jen.Code
		body   []jen.Code
		callee *jen.Statement
	)

	if m.Receiver != nil {
		params = append(params, jen.Id(m.Receiver.Name).Qual("unsafe", "Pointer"))
		body = append(body, jen.Id("self").Op(":=").Qual(RuntimeImportPath, "Self").
			Types(jen.Id(m.Owner.Name)).Call(jen.Id(m.Receiver.Name), jen.Lit(sym)))
		callee = jen.Id("self").Dot(m.GoName)
	} else {
		callee = jen.Id(m.GoName)
	}

	args := make([]jen.Code, 0, len(m.Params))
	for _, p := range m.Params {
		params = append(params, jen.Id(p.Name).Add(nativeType(p.Mapped)))
		args = append(args, forwardArg(p, sym))
	}
	call := callee.Call(args...)

	w.export(sym)
	sig := w.file.Func().Id(sym).Params(params...)
	switch {
	case m.Return == nil:
		body = append(body, call)
	case m.Return.Kind == KindHandle:
		sig.Add(nativeType(*m.Return))
		body = append(body, jen.Return(jen.Qual(RuntimeImportPath, "New").Call(call)))
	case m.Return.Converts():
		sig.Add(nativeType(*m.Return))
		body = append(body, jen.Return(convert(*m.Return, call)))
	default:
		sig.Add(nativeType(*m.Return))
		body = append(body, jen.Return(call))
	}

	sig.Block(body...)
}

// destructor releases the receiver handle, then runs the owner's teardown.
// Extra parameters stay in the signature so the C prototype matches, but
// the teardown receives zero values.
func (w *WrapperEmitter) destructor(m *MethodDecl) {
	sym := m.Symbol()
	params := []jen.Code{jen.Id(m.Receiver.Name).Qual("unsafe", "Pointer")}
	zeros := make([]jen.Code, 0, len(m.Params))
	for _, p := range m.Params {
		params = append(params, jen.Id(p.Name).Add(nativeType(p.Mapped)))
		zeros = append(zeros, jen.Op("*").New(jen.Id(p.Source)))
	}

	w.export(sym)
	w.file.Func().Id(sym).Params(params...).Block(
		jen.Id("self").Op(":=").Qual(RuntimeImportPath, "Release").
			Types(jen.Id(m.Owner.Name)).Call(jen.Id(m.Receiver.Name), jen.Lit(sym)),
		jen.Id("self").Dot(m.GoName).Call(zeros...),
	)
}

func forwardArg(p Param, sym string) jen.Code {
	switch p.Mapped.Kind {
	case KindPointer:
		return jen.Qual(RuntimeImportPath, "NonNil").Call(jen.Id(p.Name), jen.Lit(sym), jen.Lit(p.Name))
	case KindHandle:
		return jen.Qual(RuntimeImportPath, "Ref").Types(jen.Id(p.Mapped.Elem)).
			Call(jen.Id(p.Name), jen.Lit(sym), jen.Lit(p.Name))
	case KindNamed:
		if p.Mapped.Converts() {
			return jen.Id(p.Mapped.Elem).Call(jen.Id(p.Name))
		}
	}
	return jen.Id(p.Name)
}

// convert converts code to the native type of mt.
func convert(mt MappedType, code jen.Code) *jen.Statement {
	if strings.HasPrefix(mt.Native, "*") {
		return jen.Parens(nativeType(mt)).Call(code)
	}
	return nativeType(mt).Call(code)
}

// nativeType converts a mapped native type to jennifer code so that the
// unsafe and C imports are tracked.
func nativeType(mt MappedType) *jen.Statement {
	native := mt.Native
	ptr := strings.HasPrefix(native, "*")
	native = strings.TrimPrefix(native, "*")

	var code *jen.Statement
	switch {
	case native == "unsafe.Pointer":
		code = jen.Qual("unsafe", "Pointer")
	case strings.HasPrefix(native, "C."):
		code = jen.Qual("C", strings.TrimPrefix(native, "C."))
	default:
		code = jen.Id(native)
	}
	if ptr {
		return jen.Op("*").Add(code)
	}
	return code
}
