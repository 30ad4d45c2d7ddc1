package ffirt

import "embed"

// Source holds the Go files of this package. The generator type-checks
// wrappers against it without loading the module that contains it.
//
//go:embed handles.go errors.go
var Source embed.FS
