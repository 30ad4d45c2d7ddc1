package ffirt

import "fmt"

// NullError reports a NULL receiver or pointer argument.
type NullError struct {
	Symbol string
	Param  string
}

func (e *NullError) Error() string {
	return fmt.Sprintf("%s: NULL %s provided", e.Symbol, e.Param)
}

// HandleError reports a handle that is not live in the table, or that refers
// to a value of a different type.
type HandleError struct {
	Symbol   string
	Param    string
	Handle   uintptr
	Mismatch bool
}

func (e *HandleError) Error() string {
	if e.Mismatch {
		return fmt.Sprintf("%s: handle %#x for %s has the wrong type", e.Symbol, e.Handle, e.Param)
	}
	return fmt.Sprintf("%s: invalid handle %#x for %s", e.Symbol, e.Handle, e.Param)
}
