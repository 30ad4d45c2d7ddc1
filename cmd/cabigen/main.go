// cabigen generates C ABI bindings for annotated Go declarations.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: cabigen [command] [options] [package]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  generate   extract //ffi:export declarations and emit wrappers and header (default)\n")
	fmt.Fprintf(w, "  reset      truncate the shared header artifact; run once per clean build\n")
	fmt.Fprintf(w, "  symbols    print a symbol table written by generate\n")
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  cabigen ./widget                     # wrappers into ./widget, header ./widget/api.h\n")
	fmt.Fprintf(w, "  cabigen -header-dir include ./widget # shared header in include/\n")
	fmt.Fprintf(w, "  cabigen reset ./widget               # truncate ./widget/api.h\n")
	fmt.Fprintf(w, "  cabigen reset -header-dir include\n")
	fmt.Fprintf(w, "  cabigen symbols build/symbols.cbor\n")
}

func run(args []string, stdout, stderr io.Writer) int {
	log := logrus.New()
	log.SetOutput(stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	cmd := "generate"
	if len(args) > 0 {
		switch args[0] {
		case "generate", "reset", "symbols":
			cmd, args = args[0], args[1:]
		case "help", "-h", "-help", "--help":
			usage(stdout)
			return 0
		}
	}

	var err error
	switch cmd {
	case "generate":
		err = handleGenerateCommand(args, log, stderr)
	case "reset":
		err = handleResetCommand(args, log, stderr)
	case "symbols":
		err = handleSymbolsCommand(args, stdout, stderr)
	}
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
