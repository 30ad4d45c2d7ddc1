package gowrap

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DefaultHeaderName is the header artifact written into the header directory.
const DefaultHeaderName = "api.h"

// HeaderSink is the shared header artifact. It is opened for append and
// never truncated here; ResetHeader truncates it once per clean build.
type HeaderSink struct {
	path string
	f    *os.File
}

// OpenHeader opens dir/name for append, creating both if needed.
func OpenHeader(dir, name string) (*HeaderSink, error) {
	if name == "" {
		name = DefaultHeaderName
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &Error{Kind: ErrArtifactWrite, Subject: path, Err: err}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &Error{Kind: ErrArtifactWrite, Subject: path, Err: err}
	}
	return &HeaderSink{path: path, f: f}, nil
}

// Path returns the artifact path.
func (h *HeaderSink) Path() string { return h.path }

// Write appends p to the artifact.
func (h *HeaderSink) Write(p []byte) (int, error) { return h.f.Write(p) }

// Close closes the artifact.
func (h *HeaderSink) Close() error { return h.f.Close() }

// ResetHeader truncates dir/name, creating it if missing.
func ResetHeader(dir, name string) error {
	if name == "" {
		name = DefaultHeaderName
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return fmt.Errorf("resetting %s: %w", path, err)
	}
	return nil
}

// HeaderEmitter renders C declarations for the model. Lines are buffered
// while the pass runs and reach the artifact only through AppendTo, so a
// failed pass leaves the header untouched.
type HeaderEmitter struct {
	buf       bytes.Buffer
	lifecycle bool
	lines     int
}

// NewHeaderEmitter returns an emitter with an empty buffer.
func NewHeaderEmitter(lifecycle bool) *HeaderEmitter {
	return &HeaderEmitter{lifecycle: lifecycle}
}

// VisitType renders the opaque-handle typedef of t.
func (h *HeaderEmitter) VisitType(t *TypeDecl) error {
	h.writeln(HandleTypedef(t.Name))
	if h.lifecycle {
		ctor, dtor := LifecycleSymbols(t.Name)
		h.writeln(Prototype(t.Name+" *", ctor, nil))
		h.writeln(Prototype("void", dtor, []Param{*thisParam(t)}))
	}
	return nil
}

// VisitMethods renders one prototype per method.
func (h *HeaderEmitter) VisitMethods(set *MethodSet) error {
	for _, m := range set.Methods {
		h.writeln(MethodPrototype(m))
	}
	return nil
}

// Lines reports how many lines were rendered.
func (h *HeaderEmitter) Lines() int { return h.lines }

// Bytes returns the rendered lines.
func (h *HeaderEmitter) Bytes() []byte { return h.buf.Bytes() }

// AppendTo writes the rendered lines to w in a single write. path names the
// artifact in errors.
func (h *HeaderEmitter) AppendTo(w io.Writer, path string) error {
	if h.buf.Len() == 0 {
		return nil
	}
	if _, err := w.Write(h.buf.Bytes()); err != nil {
		return &Error{Kind: ErrArtifactWrite, Subject: path, Err: err}
	}
	return nil
}

func (h *HeaderEmitter) writeln(line string) {
	h.buf.WriteString(line)
	h.buf.WriteByte('\n')
	h.lines++
}

// MethodPrototype renders the C prototype of m, receiver first.
func MethodPrototype(m *MethodDecl) string {
	params := make([]Param, 0, len(m.Params)+1)
	if m.Receiver != nil {
		params = append(params, *m.Receiver)
	}
	params = append(params, m.Params...)

	ret := "void"
	if m.Return != nil {
		ret = m.Return.CLabel
	}
	return Prototype(ret, m.Symbol(), params)
}
