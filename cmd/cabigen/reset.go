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

// handleResetCommand processes the `cabigen reset` subcommand. generate only
// ever appends to the header, so a clean build runs this first. It takes
// the same package argument as generate and resolves the header the same
// way.
func handleResetCommand(args []string, log *logrus.Logger, stderr io.Writer) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("C", ".", "directory to search for "+manifest.FileName)
	load := fs.Bool("load", false, "treat the package argument as a go/packages pattern")
	headerDir := fs.String("header-dir", "", "directory of the shared header")
	header := fs.String("header", "", "header file name")
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

	g := &m.Generate
	if fs.NArg() > 0 {
		g.Package = fs.Arg(0)
		if !*load {
			abs, err := filepath.Abs(g.Package)
			if err != nil {
				return err
			}
			g.Package = abs
		}
	}
	g.Load = g.Load || *load

	pkgDir := m.PackagePath()
	if g.Load {
		src, err := gowrap.LoadPackage(pkgDir, gowrap.ScanOptions{})
		if err != nil {
			return err
		}
		pkgDir = src.Dir
	}

	hdir := m.HeaderDir(pkgDir)
	if *headerDir != "" {
		hdir = absPath(*headerDir)
	}
	name := m.Generate.Header
	if *header != "" {
		name = *header
	}

	if err := gowrap.ResetHeader(hdir, name); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"function": "reset",
		"header":   filepath.Join(hdir, name),
	}).Info("Reset header artifact")
	return nil
}
