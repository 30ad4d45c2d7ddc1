// Package ffirt is the run-time support imported by wrappers that cabigen
// generates. It owns the table of live handles handed out across the C
// boundary and the null checks every entry point performs.
package ffirt

import (
	"sync"
	"unsafe"

	"github.com/sirupsen/logrus"
)

// Table maps opaque handles to the Go values they stand for.
//
// Handles are small integers disguised as pointers. C code never sees a Go
// pointer, so the cgo pointer-passing rules hold, and the Go value stays
// reachable from the table until it is released. A live value has exactly
// one handle: registering it again returns the handle it already has.
type Table struct {
	mu   sync.RWMutex
	next uintptr
	live map[uintptr]any
	ids  map[any]uintptr
}

// firstHandle keeps handle values clear of the zero page.
const firstHandle = 0x1000

// NewTable returns an empty handle table.
func NewTable() *Table {
	return &Table{
		next: firstHandle,
		live: make(map[uintptr]any),
		ids:  make(map[any]uintptr),
	}
}

// Default is the table used by generated wrappers.
var Default = NewTable()

// Put registers v and returns its handle. v must be comparable; pointers
// are keyed by identity. Handles are never reused once deleted.
func (t *Table) Put(v any) unsafe.Pointer {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.ids[v]; ok {
		return toPointer(id)
	}
	t.next++
	t.live[t.next] = v
	t.ids[v] = t.next
	return toPointer(t.next)
}

// Get returns the value registered under p.
func (t *Table) Get(p unsafe.Pointer) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	v, ok := t.live[uintptr(p)]
	return v, ok
}

// Delete removes p from the table and returns the value it held.
func (t *Table) Delete(p unsafe.Pointer) (any, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.live[uintptr(p)]
	if ok {
		delete(t.live, uintptr(p))
		delete(t.ids, v)
	}
	return v, ok
}

// Len reports the number of live handles.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.live)
}

//go:nocheckptr
func toPointer(id uintptr) unsafe.Pointer {
	return unsafe.Pointer(id)
}

// New registers v in the default table, or returns the handle v already
// has. A nil v yields a NULL handle.
func New[T any](v *T) unsafe.Pointer {
	if v == nil {
		return nil
	}
	return Default.Put(v)
}

// Self resolves the receiver handle of an instance entry point. A NULL or
// unknown handle aborts the call.
func Self[T any](p unsafe.Pointer, symbol string) *T {
	return lookup[T](p, symbol, "self")
}

// Ref resolves a handle passed as the named parameter of symbol.
func Ref[T any](p unsafe.Pointer, symbol, param string) *T {
	return lookup[T](p, symbol, param)
}

// NonNil checks a raw pointer parameter before it is forwarded.
func NonNil[T any](p *T, symbol, param string) *T {
	if p == nil {
		abort(&NullError{Symbol: symbol, Param: param})
	}
	return p
}

// Release resolves the receiver handle of a destructor and removes it from
// the default table, so any later call with the same handle aborts.
func Release[T any](p unsafe.Pointer, symbol string) *T {
	if p == nil {
		abort(&NullError{Symbol: symbol, Param: "self"})
	}
	v, ok := Default.Delete(p)
	if !ok {
		abort(&HandleError{Symbol: symbol, Param: "self", Handle: uintptr(p)})
	}
	return typed[T](v, p, symbol, "self")
}

func lookup[T any](p unsafe.Pointer, symbol, param string) *T {
	if p == nil {
		abort(&NullError{Symbol: symbol, Param: param})
	}
	v, ok := Default.Get(p)
	if !ok {
		abort(&HandleError{Symbol: symbol, Param: param, Handle: uintptr(p)})
	}
	return typed[T](v, p, symbol, param)
}

func typed[T any](v any, p unsafe.Pointer, symbol, param string) *T {
	ptr, ok := v.(*T)
	if !ok {
		abort(&HandleError{Symbol: symbol, Param: param, Handle: uintptr(p), Mismatch: true})
	}
	return ptr
}

// abort logs err and panics with it. A panic escaping a cgo export
// terminates the process.
func abort(err error) {
	logrus.WithFields(logrus.Fields{
		"function": "ffirt.abort",
		"error":    err.Error(),
	}).Error("Aborting C entry point")
	panic(err)
}
