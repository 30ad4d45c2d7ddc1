// Package manifest handles cabigen.toml generator configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "cabigen.toml"

// Manifest represents a cabigen.toml configuration.
type Manifest struct {
	Generate Generate  `toml:"generate"`
	Log      LogConfig `toml:"log"`

	// Dir is the directory containing the cabigen.toml file (set at load time).
	Dir string `toml:"-"`
}

// Generate configures one generation target.
type Generate struct {
	Package    string   `toml:"package"`    // package directory or go/packages pattern
	Load       bool     `toml:"load"`       // resolve Package with go/packages instead of parsing a directory
	Wrapper    string   `toml:"wrapper"`    // generated Go file
	HeaderDir  string   `toml:"header-dir"` // directory of the shared header
	Header     string   `toml:"header"`     // header file name
	Symbols    string   `toml:"symbols"`    // optional CBOR symbol table
	Destructor string   `toml:"destructor"` // operation name treated as destructor
	Lifecycle  bool     `toml:"lifecycle"`  // emit <Type>_new / <Type>_destroy
	Strict     bool     `toml:"strict"`     // fail on unrecognized annotated declarations
	Include    []string `toml:"include"`    // restrict to these owner names
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// Load parses a cabigen.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return m, nil
}

// Parse decodes configuration text and applies defaults.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys: %v", undecoded)
	}
	m.applyDefaults()
	return &m, nil
}

// Default returns the configuration used when no cabigen.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Generate.Package == "" {
		m.Generate.Package = "."
	}
	if m.Generate.Wrapper == "" {
		m.Generate.Wrapper = "cabi_wrap.go"
	}
	if m.Generate.Header == "" {
		m.Generate.Header = "api.h"
	}
	if m.Generate.Destructor == "" {
		m.Generate.Destructor = "drop"
	}
	if m.Log.Level == "" {
		m.Log.Level = "info"
	}
}

// FindAndLoad walks up from startDir to find a cabigen.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// resolve joins p onto the manifest directory unless it is absolute.
func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// PackagePath returns the package directory, or the pattern unchanged when
// go/packages resolves it.
func (m *Manifest) PackagePath() string {
	if m.Generate.Load {
		return m.Generate.Package
	}
	return m.resolve(m.Generate.Package)
}

// WrapperPath returns where the generated Go file goes: next to the package
// sources unless the name is a path of its own.
func (m *Manifest) WrapperPath(pkgDir string) string {
	w := m.Generate.Wrapper
	if filepath.IsAbs(w) {
		return w
	}
	if filepath.Base(w) == w {
		return filepath.Join(pkgDir, w)
	}
	return m.resolve(w)
}

// HeaderDir returns the header directory, defaulting to the package directory.
func (m *Manifest) HeaderDir(pkgDir string) string {
	if m.Generate.HeaderDir == "" {
		return pkgDir
	}
	return m.resolve(m.Generate.HeaderDir)
}

// SymbolsPath returns the symbol table path, or "" when disabled.
func (m *Manifest) SymbolsPath() string {
	return m.resolve(m.Generate.Symbols)
}

// IncludeFilter returns the owner filter, or nil when everything is included.
func (m *Manifest) IncludeFilter() map[string]bool {
	if len(m.Generate.Include) == 0 {
		return nil
	}
	filter := make(map[string]bool, len(m.Generate.Include))
	for _, name := range m.Generate.Include {
		filter[name] = true
	}
	return filter
}

// LogLevel parses the configured log level.
func (m *Manifest) LogLevel() (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(m.Log.Level)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("log level: %w", err)
	}
	return lvl, nil
}
