package widget

// Widget is the smallest exported type.
//
//ffi:export
type Widget struct {
	seed   uint64
	closed bool
}

//ffi:export
func (w *Widget) value() uint64 {
	return w.seed * 2
}

// create is exported as Widget_make.
//
//ffi:export Widget as make
func create(seed uint64) *Widget {
	return &Widget{seed: seed}
}

//ffi:export
func (w *Widget) drop() {
	w.closed = true
}
