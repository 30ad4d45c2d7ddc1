//go:build !go1.22

package gowrap

import "go/types"

// Go releases before 1.22 have no *types.Alias, so there is nothing to unwrap.
func unalias(t types.Type) types.Type { return t }
