package gowrap

import (
	"errors"
	"fmt"
	"go/token"
)

var (
	ErrUnrecognizedDeclaration = errors.New("unrecognized declaration shape")
	ErrUnsupportedOwner        = errors.New("unsupported owner shape")
	ErrUnsupportedType         = errors.New("unsupported type shape")
	ErrArtifactWrite           = errors.New("artifact write failure")
	ErrDirectiveSyntax         = errors.New("malformed directive")
)

// Error is a generation-time failure. Every Error aborts the pass.
type Error struct {
	Kind    error
	Pos     token.Position
	Subject string // offending type text, owner expression or path
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Subject != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Subject)
	}
	if e.Pos.IsValid() {
		msg = fmt.Sprintf("%s: %s", e.Pos, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, pos token.Position, subject string) *Error {
	return &Error{Kind: kind, Pos: pos, Subject: subject}
}
