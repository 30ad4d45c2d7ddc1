package gowrap

// DefaultDestructor is the operation name that marks a destructor.
const DefaultDestructor = "drop"

// Classify decides how op crosses the boundary. An operation is static iff it
// has no receiver. A non-static operation whose exported name is destructor
// is a destructor, whatever else is true of it.
func Classify(op *RawOp, destructor string) Category {
	if op.Recv == nil {
		return Static
	}
	if destructor == "" {
		destructor = DefaultDestructor
	}
	if op.Name() == destructor {
		return Destructor
	}
	return Instance
}
