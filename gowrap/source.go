package gowrap

import (
	"fmt"
	"go/ast"
	"go/build"
	"go/parser"
	"go/token"
	"go/types"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

// Directive marks a declaration for export. It must appear as a line comment
// in the declaration's doc comment.
const Directive = "//ffi:export"

// RawDecl is one annotated declaration as found in source, before
// extraction. It is a *RecordDecl, an *ImplDecl or an *UnknownDecl.
type RawDecl interface {
	Position() token.Position
	rawDecl()
}

// RecordDecl is an annotated struct type.
type RecordDecl struct {
	Name string
	Pos  token.Position
}

// ImplDecl collects the annotated operations sharing one owner expression.
type ImplDecl struct {
	Owner     ast.Expr // receiver type or parsed directive argument; nil if none was given
	OwnerText string
	Ops       []*RawOp
	Pos       token.Position
}

// UnknownDecl is an annotated declaration of any other shape.
type UnknownDecl struct {
	Name string
	What string // "type", "var", "const"
	Pos  token.Position
}

func (d *RecordDecl) Position() token.Position  { return d.Pos }
func (d *ImplDecl) Position() token.Position    { return d.Pos }
func (d *UnknownDecl) Position() token.Position { return d.Pos }

func (*RecordDecl) rawDecl()  {}
func (*ImplDecl) rawDecl()    {}
func (*UnknownDecl) rawDecl() {}

// RawOp is one annotated function or method.
type RawOp struct {
	GoName string
	Alias  string     // exported name override from "as <name>"
	Owner  ast.Expr   // receiver type or parsed directive argument
	Recv   *ast.Field // nil for plain functions
	Type   *ast.FuncType
	Pos    token.Position
}

// Name returns the exported operation name.
func (op *RawOp) Name() string {
	if op.Alias != "" {
		return op.Alias
	}
	return op.GoName
}

// Source is the result of scanning one Go package.
type Source struct {
	Package string
	Dir     string
	Fset    *token.FileSet
	Decls   []RawDecl
	Files   []*ast.File         // scanned files, generated ones excluded
	Types   map[string]ast.Expr // every package-level type declaration, by name
}

// ScanOptions controls which declarations are collected.
type ScanOptions struct {
	// Include, if non-nil, restricts records and operation collections to
	// the named owners.
	Include map[string]bool
}

// ParseSource scans a single file. src follows the conventions of
// parser.ParseFile.
func ParseSource(filename string, src any, opts ScanOptions) (*Source, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}
	return scanFiles(fset, filepath.Dir(filename), []*ast.File{f}, opts)
}

// ParseDir scans the Go files of the package in dir that match the current
// build context, cgo files included.
func ParseDir(dir string, opts ScanOptions) (*Source, error) {
	bp, err := build.ImportDir(dir, 0)
	if err != nil {
		return nil, fmt.Errorf("reading package in %s: %w", dir, err)
	}

	names := append(append([]string{}, bp.GoFiles...), bp.CgoFiles...)
	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, filepath.Join(dir, name))
	}
	fset := token.NewFileSet()
	files, err := parseFiles(fset, paths)
	if err != nil {
		return nil, err
	}
	return scanFiles(fset, dir, files, opts)
}

// LoadPackage loads a package by pattern with go/packages and scans it.
func LoadPackage(pattern string, opts ScanOptions) (*Source, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles,
	}

	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", pattern, err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages found for %s", pattern)
	}
	if len(pkgs) > 1 {
		return nil, fmt.Errorf("pattern %s matched %d packages, want one", pattern, len(pkgs))
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		return nil, fmt.Errorf("package errors: %v", pkg.Errors)
	}
	if len(pkg.GoFiles) == 0 {
		return nil, fmt.Errorf("no Go files in %s", pattern)
	}

	// GoFiles holds the files as written; the compiled set of a cgo
	// package is cmd/cgo output.
	fset := token.NewFileSet()
	files, err := parseFiles(fset, pkg.GoFiles)
	if err != nil {
		return nil, err
	}
	return scanFiles(fset, filepath.Dir(pkg.GoFiles[0]), files, opts)
}

// parseFiles parses paths in name order.
func parseFiles(fset *token.FileSet, paths []string) ([]*ast.File, error) {
	paths = append([]string{}, paths...)
	sort.Strings(paths)
	files := make([]*ast.File, 0, len(paths))
	for _, path := range paths {
		f, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		files = append(files, f)
	}
	return files, nil
}

type collector struct {
	fset  *token.FileSet
	opts  ScanOptions
	decls []RawDecl
	impls map[string]*ImplDecl
	types map[string]ast.Expr
}

func scanFiles(fset *token.FileSet, dir string, files []*ast.File, opts ScanOptions) (*Source, error) {
	src := &Source{Dir: dir, Fset: fset, Types: make(map[string]ast.Expr)}
	c := &collector{fset: fset, opts: opts, impls: make(map[string]*ImplDecl), types: src.Types}

	for _, f := range files {
		if src.Package == "" {
			src.Package = f.Name.Name
		} else if f.Name.Name != src.Package {
			return nil, fmt.Errorf("found packages %s and %s in %s", src.Package, f.Name.Name, dir)
		}
		// Generated files, the wrapper output included, never carry exports.
		if ast.IsGenerated(f) {
			continue
		}
		src.Files = append(src.Files, f)
		if err := c.file(f); err != nil {
			return nil, err
		}
	}

	src.Decls = c.decls
	return src, nil
}

func (c *collector) included(name string) bool {
	return c.opts.Include == nil || c.opts.Include[name]
}

func (c *collector) file(f *ast.File) error {
	for _, decl := range f.Decls {
		var err error
		switch d := decl.(type) {
		case *ast.GenDecl:
			err = c.genDecl(d)
		case *ast.FuncDecl:
			err = c.funcDecl(d)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *collector) genDecl(gd *ast.GenDecl) error {
	for _, spec := range gd.Specs {
		if ts, ok := spec.(*ast.TypeSpec); ok && ts.TypeParams == nil {
			c.types[ts.Name.Name] = ts.Type
		}
		doc := specDoc(spec)
		if doc == nil && len(gd.Specs) == 1 {
			doc = gd.Doc
		}
		pos := c.fset.Position(spec.Pos())
		dir, found, err := parseDirective(doc, pos)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		if dir.owner != "" || dir.alias != "" {
			return &Error{Kind: ErrDirectiveSyntax, Pos: pos, Subject: dir.text,
				Err: fmt.Errorf("arguments are only allowed on functions and methods")}
		}

		switch s := spec.(type) {
		case *ast.TypeSpec:
			if !c.included(s.Name.Name) {
				continue
			}
			if _, ok := s.Type.(*ast.StructType); ok {
				c.decls = append(c.decls, &RecordDecl{Name: s.Name.Name, Pos: pos})
			} else {
				c.decls = append(c.decls, &UnknownDecl{Name: s.Name.Name, What: "type", Pos: pos})
			}
		case *ast.ValueSpec:
			names := make([]string, 0, len(s.Names))
			for _, n := range s.Names {
				names = append(names, n.Name)
			}
			c.decls = append(c.decls, &UnknownDecl{
				Name: strings.Join(names, ", "),
				What: gd.Tok.String(),
				Pos:  pos,
			})
		}
	}
	return nil
}

func specDoc(spec ast.Spec) *ast.CommentGroup {
	switch s := spec.(type) {
	case *ast.TypeSpec:
		return s.Doc
	case *ast.ValueSpec:
		return s.Doc
	}
	return nil
}

func (c *collector) funcDecl(fd *ast.FuncDecl) error {
	pos := c.fset.Position(fd.Pos())
	dir, found, err := parseDirective(fd.Doc, pos)
	if err != nil || !found {
		return err
	}

	op := &RawOp{
		GoName: fd.Name.Name,
		Alias:  dir.alias,
		Type:   fd.Type,
		Pos:    pos,
	}

	var owner ast.Expr
	if fd.Recv != nil && len(fd.Recv.List) > 0 {
		if dir.owner != "" {
			return &Error{Kind: ErrDirectiveSyntax, Pos: pos, Subject: dir.text,
				Err: fmt.Errorf("methods take their owner from the receiver")}
		}
		op.Recv = fd.Recv.List[0]
		owner = op.Recv.Type
	} else if dir.owner != "" {
		owner, err = parser.ParseExpr(dir.owner)
		if err != nil {
			return &Error{Kind: ErrDirectiveSyntax, Pos: pos, Subject: dir.text, Err: err}
		}
	}

	op.Owner = owner
	key := ownerKey(owner)
	if !c.included(key) {
		return nil
	}
	impl, ok := c.impls[key]
	if !ok {
		impl = &ImplDecl{Owner: owner, Pos: pos}
		if owner != nil {
			impl.OwnerText = types.ExprString(owner)
		}
		c.impls[key] = impl
		c.decls = append(c.decls, impl)
	}
	impl.Ops = append(impl.Ops, op)
	return nil
}

// ownerKey groups methods on T and *T with functions naming T.
func ownerKey(owner ast.Expr) string {
	if owner == nil {
		return ""
	}
	if star, ok := owner.(*ast.StarExpr); ok {
		owner = star.X
	}
	return types.ExprString(owner)
}

type directive struct {
	text  string
	owner string
	alias string
}

// parseDirective finds and parses the export directive in doc:
//
//	//ffi:export [<Owner>] [as <name>]
func parseDirective(doc *ast.CommentGroup, pos token.Position) (directive, bool, error) {
	if doc == nil {
		return directive{}, false, nil
	}
	for _, cm := range doc.List {
		if cm.Text != Directive && !strings.HasPrefix(cm.Text, Directive+" ") {
			continue
		}
		d := directive{text: cm.Text}
		fields := strings.Fields(strings.TrimPrefix(cm.Text, Directive))
		if len(fields) > 0 && fields[0] != "as" {
			d.owner = fields[0]
			fields = fields[1:]
		}
		switch {
		case len(fields) == 0:
		case len(fields) == 2 && fields[0] == "as" && token.IsIdentifier(fields[1]):
			d.alias = fields[1]
		default:
			return directive{}, false, &Error{Kind: ErrDirectiveSyntax, Pos: pos, Subject: cm.Text,
				Err: fmt.Errorf("want %s [<Owner>] [as <name>]", Directive)}
		}
		return d, true, nil
	}
	return directive{}, false, nil
}
