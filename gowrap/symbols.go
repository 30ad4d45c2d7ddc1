package gowrap

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// SymbolEntry describes one emitted entry point.
type SymbolEntry struct {
	Symbol    string   `cbor:"symbol"`
	Owner     string   `cbor:"owner"`
	Category  string   `cbor:"category"`
	Params    []string `cbor:"params"`
	Return    string   `cbor:"return"`
	Prototype string   `cbor:"prototype"`
}

// SymbolTable lists every entry point of one generation pass, for the
// native build step to check its exports against.
type SymbolTable struct {
	Package string        `cbor:"package"`
	Types   []string      `cbor:"types"`
	Symbols []SymbolEntry `cbor:"symbols"`
}

// Lookup returns the entry for symbol.
func (t *SymbolTable) Lookup(symbol string) (SymbolEntry, bool) {
	for _, e := range t.Symbols {
		if e.Symbol == symbol {
			return e, true
		}
	}
	return SymbolEntry{}, false
}

// SymbolRecorder is a Visitor that builds a SymbolTable.
type SymbolRecorder struct {
	table     SymbolTable
	lifecycle bool
}

// NewSymbolRecorder returns a recorder for package pkg.
func NewSymbolRecorder(pkg string, lifecycle bool) *SymbolRecorder {
	return &SymbolRecorder{table: SymbolTable{Package: pkg}, lifecycle: lifecycle}
}

// VisitType records the type and, when enabled, its lifecycle entry points.
func (r *SymbolRecorder) VisitType(t *TypeDecl) error {
	r.table.Types = append(r.table.Types, t.Name)
	if !r.lifecycle {
		return nil
	}
	ctor, dtor := LifecycleSymbols(t.Name)
	this := *thisParam(t)
	r.table.Symbols = append(r.table.Symbols,
		SymbolEntry{
			Symbol:    ctor,
			Owner:     t.Name,
			Category:  "lifecycle",
			Return:    t.Name + " *",
			Prototype: Prototype(t.Name+" *", ctor, nil),
		},
		SymbolEntry{
			Symbol:    dtor,
			Owner:     t.Name,
			Category:  "lifecycle",
			Params:    []string{this.Mapped.CLabel},
			Return:    "void",
			Prototype: Prototype("void", dtor, []Param{this}),
		},
	)
	return nil
}

// VisitMethods records one entry per method.
func (r *SymbolRecorder) VisitMethods(set *MethodSet) error {
	for _, m := range set.Methods {
		e := SymbolEntry{
			Symbol:    m.Symbol(),
			Owner:     set.Owner.Name,
			Category:  m.Category.String(),
			Return:    "void",
			Prototype: MethodPrototype(m),
		}
		if m.Receiver != nil {
			e.Params = append(e.Params, m.Receiver.Mapped.CLabel)
		}
		for _, p := range m.Params {
			e.Params = append(e.Params, p.Mapped.CLabel)
		}
		if m.Return != nil {
			e.Return = m.Return.CLabel
		}
		r.table.Symbols = append(r.table.Symbols, e)
	}
	return nil
}

// Table returns the recorded table.
func (r *SymbolRecorder) Table() *SymbolTable {
	return &r.table
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("gowrap: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalSymbols serializes a SymbolTable to canonical CBOR.
func MarshalSymbols(t *SymbolTable) ([]byte, error) {
	return cborEncMode.Marshal(t)
}

// UnmarshalSymbols deserializes a SymbolTable.
func UnmarshalSymbols(data []byte) (*SymbolTable, error) {
	var t SymbolTable
	if err := cbor.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("gowrap: unmarshal symbols: %w", err)
	}
	return &t, nil
}

// WriteSymbols writes t to path, replacing any previous table.
func WriteSymbols(path string, t *SymbolTable) error {
	data, err := MarshalSymbols(t)
	if err != nil {
		return fmt.Errorf("encoding symbols: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &Error{Kind: ErrArtifactWrite, Subject: path, Err: err}
	}
	return nil
}

// ReadSymbols reads a table written by WriteSymbols.
func ReadSymbols(path string) (*SymbolTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return UnmarshalSymbols(data)
}
