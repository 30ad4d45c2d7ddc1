package gowrap

import (
	"strings"
	"testing"
)

func TestValidateGoodSource(t *testing.T) {
	src := `package w

import "C"

//export W_value
func W_value() int32 { return 1 }
`
	errs := NewCodeValidator("w.go").Validate([]byte(src), []string{"W_value"})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors:\n%s", FormatValidationErrors(errs, "w.go"))
	}
}

func TestValidateProblems(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		symbols []string
		want    string
	}{
		{
			name: "syntax error",
			src:  "package w\n\nfunc broken( {\n",
			want: "3:",
		},
		{
			name: "missing cgo import",
			src:  "package w\n\n//export W_f\nfunc W_f() {}\n",
			want: `missing import "C"`,
		},
		{
			name: "export on wrong function",
			src:  "package w\n\nimport \"C\"\n\n//export W_f\nfunc W_g() {}\n",
			want: "W_f: //export is not attached",
		},
		{
			name: "export on method",
			src:  "package w\n\nimport \"C\"\n\ntype T struct{}\n\n//export W_f\nfunc (T) W_f() {}\n",
			want: "not attached to a plain function",
		},
		{
			name:    "symbol missing",
			src:     "package w\n\nimport \"C\"\n",
			symbols: []string{"W_f"},
			want:    "W_f: symbol not exported",
		},
		{
			name:    "symbol duplicated",
			src:     "package w\n\nimport \"C\"\n\n//export W_f\nfunc W_f() {}\n\n//export W_f\nfunc W_f2() {}\n",
			symbols: []string{"W_f"},
			want:    "exported 2 times",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := NewCodeValidator("w.go").Validate([]byte(tt.src), tt.symbols)
			if len(errs) == 0 {
				t.Fatal("expected validation errors")
			}
			report := FormatValidationErrors(errs, "w.go")
			if !strings.Contains(report, tt.want) {
				t.Errorf("report does not mention %q:\n%s", tt.want, report)
			}
		})
	}
}

func TestFormatValidationErrorsEmpty(t *testing.T) {
	if got := FormatValidationErrors(nil, "w.go"); got != "" {
		t.Errorf("FormatValidationErrors(nil) = %q", got)
	}
}

func TestValidateTypeChecks(t *testing.T) {
	tests := []struct {
		name    string
		pkg     string
		wrapper string
		want    []string
	}{
		{
			name: "struct result by value",
			pkg: `package box

type Box struct{ n uint64 }

func (b *Box) clone() Box { return *b }
`,
			wrapper: `package box

import (
	"github.com/chazu/cabigen/ffirt"
	"unsafe"
)

import "C"

//export Box_clone
func Box_clone(this unsafe.Pointer) Box {
	self := ffirt.Self[Box](this, "Box_clone")
	return self.clone()
}
`,
			want: []string{"Box_clone", "Box cannot cross the C boundary"},
		},
		{
			name: "parameter shadows callee",
			pkg: `package counter

type Counter struct{ n uint64 }

func create(n uint64) *Counter { return &Counter{n: n} }
`,
			wrapper: `package counter

import (
	"github.com/chazu/cabigen/ffirt"
	"unsafe"
)

import "C"

//export Counter_create
func Counter_create(create uint64) unsafe.Pointer {
	return ffirt.New(create(create))
}
`,
			want: []string{"Counter_create", "cannot call non-function create"},
		},
		{
			name: "unknown method",
			pkg: `package w

type W struct{}
`,
			wrapper: `package w

import (
	"github.com/chazu/cabigen/ffirt"
	"unsafe"
)

import "C"

//export W_size
func W_size(this unsafe.Pointer) uint64 {
	self := ffirt.Self[W](this, "W_size")
	return self.size()
}
`,
			want: []string{"W_size", "size"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := parseString(t, tt.pkg, ScanOptions{})
			errs := NewCodeValidator("cabi_wrap.go").
				WithPackage(src.Fset, src.Files).
				Validate([]byte(tt.wrapper), nil)
			if len(errs) == 0 {
				t.Fatal("expected validation errors")
			}
			report := FormatValidationErrors(errs, "cabi_wrap.go")
			for _, want := range tt.want {
				if !strings.Contains(report, want) {
					t.Errorf("report does not mention %q:\n%s", want, report)
				}
			}
		})
	}
}

func TestValidateIgnoresPackageErrors(t *testing.T) {
	// The import resolves to an empty package, so Thing is undefined in
	// input.go. Only the generated file is judged.
	src := parseString(t, `package w

import "example.com/dep"

var _ = dep.Thing

type W struct{ n uint64 }

func (w *W) size() uint64 { return w.n }
`, ScanOptions{})

	wrapper := `package w

import (
	"github.com/chazu/cabigen/ffirt"
	"unsafe"
)

import "C"

//export W_size
func W_size(this unsafe.Pointer) uint64 {
	self := ffirt.Self[W](this, "W_size")
	return self.size()
}
`
	errs := NewCodeValidator("cabi_wrap.go").
		WithPackage(src.Fset, src.Files).
		Validate([]byte(wrapper), []string{"W_size"})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors:\n%s", FormatValidationErrors(errs, "cabi_wrap.go"))
	}
}
