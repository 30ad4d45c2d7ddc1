package gadget

import "unsafe"

//ffi:export
type Gadget struct {
	total uint64
	ratio float64
	peer  *Gadget
}

// Level is not a struct, so it cannot be exported as a handle.
//
//ffi:export
type Level int32

//ffi:export
func (g *Gadget) Add(delta *uint64) uint64 {
	g.total += *delta
	return g.total
}

//ffi:export
func (g *Gadget) Link(other *Gadget) bool {
	g.peer = other
	return other != nil
}

//ffi:export
func (g Gadget) Scale(f float64, _ int32) float64 {
	return g.ratio * f
}

//ffi:export
func (g *Gadget) Peer() *Gadget {
	return g.peer
}

//ffi:export
func (g *Gadget) Raw(p unsafe.Pointer) {}

//ffi:export Gadget
func NewGadget(ratio float64) *Gadget {
	return &Gadget{ratio: ratio}
}

//ffi:export as drop
func (g *Gadget) Close(reason int32) {
	g.peer = nil
}
