package gowrap

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// DefaultWrapperName is the generated Go file placed in the package directory.
const DefaultWrapperName = "cabi_wrap.go"

// Options configures one generation run.
type Options struct {
	WrapperPath    string // defaults to <source dir>/cabi_wrap.go
	HeaderDir      string // defaults to the source dir
	HeaderName     string // defaults to api.h
	SymbolsPath    string // no symbol table is written when empty
	Destructor     string // defaults to "drop"
	Lifecycle      bool
	Strict         bool
	SkipValidation bool
	Log            logrus.FieldLogger
}

// Result describes what a run produced.
type Result struct {
	Model       *Model
	Wrapper     []byte
	WrapperPath string
	HeaderPath  string
	HeaderLines int
	Symbols     *SymbolTable
}

// Generate runs one pass over src. Nothing is written until the pass and
// validation have succeeded; then the wrapper file and symbol table are
// written and the header lines are appended to the shared header in one
// write.
func Generate(src *Source, opts Options) (*Result, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.WrapperPath == "" {
		opts.WrapperPath = filepath.Join(src.Dir, DefaultWrapperName)
	}
	if opts.HeaderDir == "" {
		opts.HeaderDir = src.Dir
	}

	wrappers := NewWrapperEmitter(src.Package, opts.Lifecycle)
	headers := NewHeaderEmitter(opts.Lifecycle)
	symbols := NewSymbolRecorder(src.Package, opts.Lifecycle)

	extractor := NewExtractor(log)
	if opts.Destructor != "" {
		extractor.Destructor = opts.Destructor
	}
	extractor.Strict = opts.Strict

	pass := &Pass{
		Extractor: extractor,
		Visitors:  []Visitor{wrappers, headers, symbols},
		Log:       log,
	}
	model, err := pass.Run(src)
	if err != nil {
		return nil, err
	}

	code, err := wrappers.Render()
	if err != nil {
		return nil, err
	}
	if !opts.SkipValidation {
		name := filepath.Base(opts.WrapperPath)
		cv := NewCodeValidator(name).WithPackage(src.Fset, src.Files)
		if verrs := cv.Validate(code, wrappers.Symbols()); len(verrs) > 0 {
			return nil, fmt.Errorf("generated wrappers are invalid:\n%s", FormatValidationErrors(verrs, name))
		}
	}

	if err := os.WriteFile(opts.WrapperPath, code, 0o644); err != nil {
		return nil, &Error{Kind: ErrArtifactWrite, Subject: opts.WrapperPath, Err: err}
	}
	if opts.SymbolsPath != "" {
		if err := WriteSymbols(opts.SymbolsPath, symbols.Table()); err != nil {
			return nil, err
		}
	}

	header, err := OpenHeader(opts.HeaderDir, opts.HeaderName)
	if err != nil {
		return nil, err
	}
	if err := headers.AppendTo(header, header.Path()); err != nil {
		header.Close()
		return nil, err
	}
	if err := header.Close(); err != nil {
		return nil, &Error{Kind: ErrArtifactWrite, Subject: header.Path(), Err: err}
	}

	log.WithFields(logrus.Fields{
		"function": "Generate",
		"package":  src.Package,
		"wrapper":  opts.WrapperPath,
		"header":   header.Path(),
		"symbols":  len(wrappers.Symbols()),
	}).Info("Generated C ABI bindings")

	return &Result{
		Model:       model,
		Wrapper:     code,
		WrapperPath: opts.WrapperPath,
		HeaderPath:  header.Path(),
		HeaderLines: headers.Lines(),
		Symbols:     symbols.Table(),
	}, nil
}
