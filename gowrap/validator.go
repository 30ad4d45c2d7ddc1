package gowrap

// This file checks generated wrapper source before it is written: it must
// parse, import "C", and every //export directive must sit directly on the
// plain function it names. Given the package it belongs to, the source is
// also type-checked and exported signatures are limited to types cgo can
// export.

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"go/types"
	"io/fs"
	pathpkg "path"
	"strconv"
	"strings"
	"sync"

	"github.com/chazu/cabigen/ffirt"
)

// ValidationError is a problem found in generated wrapper source.
type ValidationError struct {
	Line     int
	Column   int
	Function string // symbol the error belongs to, if any
	Message  string
}

func (e ValidationError) String() string {
	if e.Function != "" {
		return fmt.Sprintf("%d:%d: %s: %s", e.Line, e.Column, e.Function, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

// CodeValidator validates generated wrapper source in memory.
type CodeValidator struct {
	fset     *token.FileSet
	filename string
	pkgFiles []*ast.File
}

// NewCodeValidator creates a validator for the given filename (used in
// error messages).
func NewCodeValidator(filename string) *CodeValidator {
	return &CodeValidator{filename: filename}
}

// WithPackage makes Validate type-check the source together with files,
// the package it is generated into. Only errors located in the generated
// source are reported.
func (cv *CodeValidator) WithPackage(fset *token.FileSet, files []*ast.File) *CodeValidator {
	cv.fset = fset
	cv.pkgFiles = files
	return cv
}

// Validate checks source. If symbols is non-nil, each must be exported
// exactly once.
func (cv *CodeValidator) Validate(source []byte, symbols []string) []ValidationError {
	if cv.fset == nil || cv.pkgFiles == nil {
		cv.fset = token.NewFileSet()
	}

	file, err := parser.ParseFile(cv.fset, cv.filename, source, parser.ParseComments)
	if err != nil {
		return cv.parseErrors(err)
	}

	var errs []ValidationError
	if !importsC(file) {
		errs = append(errs, ValidationError{Line: 1, Column: 1, Message: `missing import "C"`})
	}

	exported := make(map[string]int)
	for _, cg := range file.Comments {
		for _, c := range cg.List {
			name, ok := strings.CutPrefix(c.Text, "//export ")
			if !ok {
				continue
			}
			name = strings.TrimSpace(name)
			exported[name]++
			if fn := cv.funcAfter(file, cg); fn == nil || fn.Name.Name != name || fn.Recv != nil {
				pos := cv.fset.Position(c.Pos())
				errs = append(errs, ValidationError{
					Line:     pos.Line,
					Column:   pos.Column,
					Function: name,
					Message:  "//export is not attached to a plain function of the same name",
				})
			}
		}
	}

	if cv.pkgFiles != nil {
		errs = append(errs, cv.typeCheck(file)...)
	}

	for _, sym := range symbols {
		switch n := exported[sym]; {
		case n == 0:
			errs = append(errs, ValidationError{Line: 1, Column: 1, Function: sym, Message: "symbol not exported"})
		case n > 1:
			errs = append(errs, ValidationError{Line: 1, Column: 1, Function: sym, Message: fmt.Sprintf("symbol exported %d times", n)})
		}
	}
	return errs
}

func (cv *CodeValidator) typeCheck(file *ast.File) []ValidationError {
	var errs []ValidationError
	conf := types.Config{
		Importer:    runtimeImporter{},
		FakeImportC: true, // Handle import "C" for cgo wrappers
		Error: func(err error) {
			terr, ok := err.(types.Error)
			if !ok {
				return
			}
			pos := cv.fset.Position(terr.Pos)
			if pos.Filename != cv.filename {
				return
			}
			errs = append(errs, ValidationError{
				Line:     pos.Line,
				Column:   pos.Column,
				Function: enclosingFunc(file, terr.Pos),
				Message:  terr.Msg,
			})
		},
	}

	info := &types.Info{Defs: make(map[*ast.Ident]types.Object)}
	files := append(append([]*ast.File{}, cv.pkgFiles...), file)
	_, _ = conf.Check(file.Name.Name, cv.fset, files, info)

	return append(errs, cv.checkSignatures(file, info)...)
}

// checkSignatures reports exported parameters and results whose Go type has
// no C counterpart.
func (cv *CodeValidator) checkSignatures(file *ast.File, info *types.Info) []ValidationError {
	var errs []ValidationError
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Doc == nil || !hasExport(fn.Doc) {
			continue
		}
		obj, ok := info.Defs[fn.Name].(*types.Func)
		if !ok {
			continue
		}
		sig := obj.Type().(*types.Signature)
		for _, tuple := range []*types.Tuple{sig.Params(), sig.Results()} {
			for i := 0; i < tuple.Len(); i++ {
				v := tuple.At(i)
				if cgoExportable(v.Type()) {
					continue
				}
				pos := cv.fset.Position(fn.Pos())
				errs = append(errs, ValidationError{
					Line:     pos.Line,
					Column:   pos.Column,
					Function: fn.Name.Name,
					Message:  fmt.Sprintf("type %s cannot cross the C boundary", v.Type()),
				})
			}
		}
	}
	return errs
}

// cgoExportable accepts the types the wrapper emitter produces: scalars,
// unsafe.Pointer, pointers and C types. C types are invalid under
// FakeImportC and are accepted as such.
func cgoExportable(t types.Type) bool {
	switch t := unalias(t).(type) {
	case *types.Basic:
		return t.Kind() != types.String
	case *types.Pointer:
		return true
	}
	return false
}

func hasExport(cg *ast.CommentGroup) bool {
	for _, c := range cg.List {
		if strings.HasPrefix(c.Text, "//export ") {
			return true
		}
	}
	return false
}

func enclosingFunc(file *ast.File, pos token.Pos) string {
	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok && fn.Pos() <= pos && pos <= fn.End() {
			return fn.Name.Name
		}
	}
	return ""
}

// runtimeImporter resolves the wrapper runtime from its embedded source and
// gives every other import an empty package. Only the runtime's exported
// signatures matter to generated code.
type runtimeImporter struct{}

func (runtimeImporter) Import(path string) (*types.Package, error) {
	if path == RuntimeImportPath {
		return runtimePackage()
	}
	pkg := types.NewPackage(path, pathpkg.Base(path))
	pkg.MarkComplete()
	return pkg, nil
}

var runtimePackage = sync.OnceValues(func() (*types.Package, error) {
	fset := token.NewFileSet()
	names, err := fs.Glob(ffirt.Source, "*.go")
	if err != nil {
		return nil, err
	}
	files := make([]*ast.File, 0, len(names))
	for _, name := range names {
		data, err := ffirt.Source.ReadFile(name)
		if err != nil {
			return nil, err
		}
		f, err := parser.ParseFile(fset, name, data, parser.SkipObjectResolution)
		if err != nil {
			return nil, fmt.Errorf("parsing runtime %s: %w", name, err)
		}
		files = append(files, f)
	}

	conf := types.Config{
		Importer:         runtimeImporter{},
		IgnoreFuncBodies: true,
		Error:            func(error) {}, // stub imports leave some field types unresolved
	}
	pkg, _ := conf.Check(RuntimeImportPath, fset, files, nil)
	return pkg, nil
})

// funcAfter returns the function whose doc comment is cg.
func (cv *CodeValidator) funcAfter(file *ast.File, cg *ast.CommentGroup) *ast.FuncDecl {
	for _, decl := range file.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok && fn.Doc == cg {
			return fn
		}
	}
	return nil
}

func (cv *CodeValidator) parseErrors(err error) []ValidationError {
	var errs []ValidationError
	if list, ok := err.(scanner.ErrorList); ok {
		for _, e := range list {
			errs = append(errs, ValidationError{Line: e.Pos.Line, Column: e.Pos.Column, Message: e.Msg})
		}
		return errs
	}
	return []ValidationError{{Line: 1, Column: 1, Message: err.Error()}}
}

func importsC(file *ast.File) bool {
	for _, imp := range file.Imports {
		if path, err := strconv.Unquote(imp.Path.Value); err == nil && path == "C" {
			return true
		}
	}
	return false
}

// FormatValidationErrors returns a human-readable error report.
func FormatValidationErrors(errs []ValidationError, filename string) string {
	if len(errs) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, err := range errs {
		sb.WriteString("  ")
		sb.WriteString(filename)
		sb.WriteString(":")
		sb.WriteString(err.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
