package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/chazu/cabigen/gowrap"
)

// handleSymbolsCommand prints a symbol table, one prototype per line, grouped
// under the package and type list.
func handleSymbolsCommand(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("symbols", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("symbols requires exactly one symbol table path")
	}

	table, err := gowrap.ReadSymbols(fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "package %s\n", table.Package)
	for _, t := range table.Types {
		fmt.Fprintf(stdout, "type %s\n", t)
	}
	for _, s := range table.Symbols {
		fmt.Fprintf(stdout, "%-10s %s\n", s.Category, s.Prototype)
	}
	return nil
}
