package gowrap

import (
	"fmt"
	"go/ast"
	"go/types"
	"strings"

	"github.com/sirupsen/logrus"
)

// reservedParams collide with names used inside every generated wrapper.
var reservedParams = map[string]bool{
	"this":   true,
	"self":   true,
	"ffirt":  true,
	"unsafe": true,
	"C":      true,
	"new":    true,
}

// Extracted is the model produced for one raw declaration. Exactly one field
// is set, or neither when the declaration was skipped.
type Extracted struct {
	Type    *TypeDecl
	Methods *MethodSet
}

// Skipped reports whether nothing was produced.
func (e Extracted) Skipped() bool {
	return e.Type == nil && e.Methods == nil
}

// Extractor turns raw declarations into model entities.
type Extractor struct {
	Mapper     *TypeMapper
	Destructor string // defaults to DefaultDestructor
	Strict     bool   // fail on unrecognized declarations instead of skipping them
	Log        logrus.FieldLogger
}

// NewExtractor returns an extractor with a fresh mapper.
func NewExtractor(log logrus.FieldLogger) *Extractor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Extractor{
		Mapper:     NewTypeMapper(),
		Destructor: DefaultDestructor,
		Log:        log,
	}
}

// Extract builds the model for raw.
func (x *Extractor) Extract(raw RawDecl) (Extracted, error) {
	switch d := raw.(type) {
	case *RecordDecl:
		return Extracted{Type: &TypeDecl{Name: d.Name, Pos: d.Pos}}, nil
	case *ImplDecl:
		set, err := x.extractImpl(d)
		if err != nil {
			return Extracted{}, err
		}
		return Extracted{Methods: set}, nil
	case *UnknownDecl:
		if x.Strict {
			return Extracted{}, newError(ErrUnrecognizedDeclaration, d.Pos, d.What+" "+d.Name)
		}
		x.Log.WithFields(logrus.Fields{
			"function": "Extract",
			"decl":     d.Name,
			"kind":     d.What,
			"pos":      d.Pos.String(),
		}).Warn("Skipping annotated declaration that is neither a struct nor an operation")
		return Extracted{}, nil
	}
	return Extracted{}, newError(ErrUnrecognizedDeclaration, raw.Position(), fmt.Sprintf("%T", raw))
}

func (x *Extractor) extractImpl(impl *ImplDecl) (*MethodSet, error) {
	if impl.Owner == nil {
		return nil, newError(ErrUnsupportedOwner, impl.Pos, "no owner named")
	}

	var owner *TypeDecl
	set := &MethodSet{}
	for _, op := range impl.Ops {
		name, err := ownerName(op)
		if err != nil {
			return nil, err
		}
		if owner == nil {
			owner = &TypeDecl{Name: name, Pos: impl.Pos}
			set.Owner = owner
		}

		m, err := x.extractMethod(owner, op)
		if err != nil {
			return nil, err
		}
		set.Methods = append(set.Methods, m)
	}
	return set, nil
}

// ownerName checks that the owner of op is a single plain name. Methods may
// use a pointer receiver.
func ownerName(op *RawOp) (string, error) {
	expr := op.Owner
	if expr == nil {
		return "", newError(ErrUnsupportedOwner, op.Pos, "no owner named for "+op.GoName)
	}
	if star, ok := expr.(*ast.StarExpr); ok && op.Recv != nil {
		expr = star.X
	}
	ident, ok := expr.(*ast.Ident)
	if !ok {
		return "", newError(ErrUnsupportedOwner, op.Pos, types.ExprString(op.Owner))
	}
	return ident.Name, nil
}

func (x *Extractor) extractMethod(owner *TypeDecl, op *RawOp) (*MethodDecl, error) {
	if op.Type.TypeParams != nil && op.Type.TypeParams.NumFields() > 0 {
		return nil, newError(ErrUnsupportedType, op.Pos, "generic function "+op.GoName)
	}

	m := &MethodDecl{
		Owner:    owner,
		Name:     op.Name(),
		GoName:   op.GoName,
		Category: Classify(op, x.Destructor),
		Pos:      op.Pos,
	}
	if m.Category != Static {
		m.Receiver = thisParam(owner)
	}

	params, err := x.mapParams(op)
	if err != nil {
		return nil, err
	}
	m.Params = params

	ret, err := x.mapResult(op)
	if err != nil {
		return nil, err
	}
	m.Return = ret
	nameParams(m)

	if m.Category == Destructor && len(m.Params) > 0 {
		x.Log.WithFields(logrus.Fields{
			"function": "Extract",
			"symbol":   m.Symbol(),
			"params":   len(m.Params),
		}).Warn("Destructor parameters are kept in the signature but not forwarded")
	}
	return m, nil
}

func (x *Extractor) mapParams(op *RawOp) ([]Param, error) {
	var params []Param
	if op.Type.Params == nil {
		return params, nil
	}
	for _, field := range op.Type.Params.List {
		mt, err := x.Mapper.Map(field.Type, op.Pos)
		if err != nil {
			return nil, err
		}
		names := field.Names
		if len(names) == 0 {
			names = []*ast.Ident{nil}
		}
		for _, n := range names {
			name := ""
			if n != nil && n.Name != "_" {
				name = n.Name
			}
			params = append(params, Param{
				Name:   name,
				Source: types.ExprString(field.Type),
				Mapped: mt,
			})
		}
	}
	return params, nil
}

// nameParams gives every parameter of m a name that is unique and does not
// shadow anything the wrapper body refers to. Declared names are kept where
// possible; the others become argN, and clashes gain underscores.
func nameParams(m *MethodDecl) {
	taken := make(map[string]bool, len(reservedParams))
	for name := range reservedParams {
		taken[name] = true
	}
	taken[m.Owner.Name] = true
	if m.Category == Static {
		taken[m.GoName] = true
	}
	if m.Return != nil {
		reserveTypeNames(taken, *m.Return)
	}
	for _, p := range m.Params {
		reserveTypeNames(taken, p.Mapped)
	}

	kept := make(map[string]bool, len(m.Params))
	for _, p := range m.Params {
		if p.Name != "" && !taken[p.Name] {
			kept[p.Name] = true
		}
	}

	used := make(map[string]bool, len(m.Params))
	for i := range m.Params {
		p := &m.Params[i]
		if p.Name != "" && kept[p.Name] && !used[p.Name] {
			used[p.Name] = true
			continue
		}
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		for taken[name] || kept[name] || used[name] {
			name += "_"
		}
		p.Name = name
		used[name] = true
	}
}

// reserveTypeNames marks the identifiers a wrapper uses to spell mt.
func reserveTypeNames(taken map[string]bool, mt MappedType) {
	for _, s := range []string{mt.Native, mt.Elem} {
		for _, id := range strings.FieldsFunc(s, func(r rune) bool { return r == '*' || r == '.' }) {
			taken[id] = true
		}
	}
}

func (x *Extractor) mapResult(op *RawOp) (*MappedType, error) {
	results := op.Type.Results
	if results == nil || results.NumFields() == 0 {
		return nil, nil
	}
	if results.NumFields() > 1 {
		parts := make([]string, 0, results.NumFields())
		for _, f := range results.List {
			n := len(f.Names)
			if n == 0 {
				n = 1
			}
			for i := 0; i < n; i++ {
				parts = append(parts, types.ExprString(f.Type))
			}
		}
		return nil, newError(ErrUnsupportedType, op.Pos, "("+strings.Join(parts, ", ")+")")
	}
	mt, err := x.Mapper.Map(results.List[0].Type, op.Pos)
	if err != nil {
		return nil, err
	}
	return &mt, nil
}
