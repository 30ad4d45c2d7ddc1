package main

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/chazu/cabigen/gowrap"
	"github.com/chazu/cabigen/manifest"
)

// handleGenerateCommand processes the `cabigen generate` subcommand.
// Flags override cabigen.toml, which is searched for upward from -C.
//
//	cabigen                          # package from cabigen.toml, or .
//	cabigen ./widget                 # package directory
//	cabigen -load example.com/widget # go/packages pattern
func handleGenerateCommand(args []string, log *logrus.Logger, stderr io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		dir        = fs.String("C", ".", "directory to search for "+manifest.FileName)
		verbose    = fs.Bool("v", false, "verbose output")
		load       = fs.Bool("load", false, "treat the package argument as a go/packages pattern")
		wrapper    = fs.String("o", "", "generated Go file")
		headerDir  = fs.String("header-dir", "", "directory of the shared header")
		header     = fs.String("header", "", "header file name")
		symbols    = fs.String("symbols", "", "write a CBOR symbol table to this path")
		destructor = fs.String("destructor", "", "operation name treated as destructor")
		lifecycle  = fs.Bool("lifecycle", false, "emit <Type>_new and <Type>_destroy entry points")
		strict     = fs.Bool("strict", false, "fail on annotated declarations that cannot be exported")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	m, err := manifest.FindAndLoad(*dir)
	if err != nil {
		return fmt.Errorf("loading %s: %w", manifest.FileName, err)
	}
	if m == nil {
		m = manifest.Default()
	}

	// Flags win over the file
	g := &m.Generate
	if fs.NArg() > 0 {
		g.Package = fs.Arg(0)
		if !*load {
			// Command-line paths are relative to the working directory.
			abs, err := filepath.Abs(g.Package)
			if err != nil {
				return err
			}
			g.Package = abs
		}
	}
	g.Load = g.Load || *load
	setString(&g.Wrapper, *wrapper)
	setString(&g.HeaderDir, absPath(*headerDir))
	setString(&g.Header, *header)
	setString(&g.Symbols, absPath(*symbols))
	setString(&g.Destructor, *destructor)
	g.Lifecycle = g.Lifecycle || *lifecycle
	g.Strict = g.Strict || *strict

	lvl, err := m.LogLevel()
	if err != nil {
		return err
	}
	if *verbose {
		lvl = logrus.DebugLevel
	}
	log.SetLevel(lvl)

	return generate(m, log)
}

func generate(m *manifest.Manifest, log *logrus.Logger) error {
	g := m.Generate
	opts := gowrap.ScanOptions{Include: m.IncludeFilter()}

	var (
		src *gowrap.Source
		err error
	)
	if g.Load {
		src, err = gowrap.LoadPackage(m.PackagePath(), opts)
	} else {
		src, err = gowrap.ParseDir(m.PackagePath(), opts)
	}
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"function": "generate",
		"package":  src.Package,
		"decls":    len(src.Decls),
	}).Debug("Scanned package")

	res, err := gowrap.Generate(src, gowrap.Options{
		WrapperPath: m.WrapperPath(src.Dir),
		HeaderDir:   m.HeaderDir(src.Dir),
		HeaderName:  g.Header,
		SymbolsPath: m.SymbolsPath(),
		Destructor:  g.Destructor,
		Lifecycle:   g.Lifecycle,
		Strict:      g.Strict,
		Log:         log,
	})
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"function": "generate",
		"types":    len(res.Model.Types),
		"lines":    res.HeaderLines,
	}).Debugf("Appended to %s", res.HeaderPath)
	return nil
}

// absPath anchors a flag value at the working directory.
func absPath(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
