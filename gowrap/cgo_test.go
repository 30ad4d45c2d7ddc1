package gowrap

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// importPath is the import path of this directory.
const importPath = "github.com/chazu/cabigen/gowrap"

const cgoMain = `#include <stdbool.h>
#include <stdint.h>
#include <stdio.h>
#include <string.h>

#include "include/api.h"

int main(int argc, char **argv) {
	const char *mode = argc > 1 ? argv[1] : "";

	Widget *w = Widget_make(21);
	printf("value=%llu\n", (unsigned long long)Widget_value(w));

	Gadget *g = Gadget_NewGadget(1.5);
	Gadget *h = Gadget_NewGadget(2.0);
	uint64_t delta = 5;
	printf("total=%llu\n", (unsigned long long)Gadget_Add(g, &delta));
	printf("linked=%d\n", Gadget_Link(g, h));

	Gadget *p1 = Gadget_Peer(g);
	Gadget *p2 = Gadget_Peer(g);
	printf("same=%d\n", p1 == p2 && p1 == h);
	fflush(stdout);

	if (strcmp(mode, "null-self") == 0) {
		Widget_value(NULL);
	} else if (strcmp(mode, "null-arg") == 0) {
		Gadget_Add(g, NULL);
	} else if (strcmp(mode, "use-after-drop") == 0) {
		Gadget_drop(h, 0);
		Gadget_Scale(p1, 2.0, 0);
	}

	Widget_drop(w);
	printf("done\n");
	return 0;
}
`

// TestCArchive generates wrappers for the fixtures, links them into a C
// program through a c-archive and drives the entry points from C.
func TestCArchive(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a c-archive")
	}
	if runtime.GOOS != "linux" {
		t.Skip("link flags are set up for linux")
	}
	goTool, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go command not found")
	}
	cc, err := exec.LookPath("cc")
	if err != nil {
		t.Skip("cc not found")
	}

	// The scratch packages must sit inside this module so the fixtures
	// resolve through its import path.
	dir, err := os.MkdirTemp(".", "cabitest")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	base := filepath.Base(dir)
	dir, err = filepath.Abs(dir)
	require.NoError(t, err)

	include := filepath.Join(dir, "include")
	require.NoError(t, ResetHeader(include, ""))

	log, _ := test.NewNullLogger()
	for _, name := range []string{"widget", "gadget"} {
		pkg := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(pkg, 0o755))
		data, err := os.ReadFile(filepath.Join("testdata", name, name+".go"))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(pkg, name+".go"), data, 0o644))

		src, err := ParseDir(pkg, ScanOptions{})
		require.NoError(t, err)
		_, err = Generate(src, Options{HeaderDir: include, Log: log})
		require.NoError(t, err)
	}

	mainDir := filepath.Join(dir, "main")
	require.NoError(t, os.MkdirAll(mainDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(mainDir, "main.go"), []byte(`package main

import (
	_ "`+importPath+`/`+base+`/gadget"
	_ "`+importPath+`/`+base+`/widget"
)

func main() {}
`), 0o644))

	archive := filepath.Join(dir, "libcabi.a")
	build := exec.Command(goTool, "build", "-buildmode=c-archive", "-o", archive, "./"+base+"/main")
	build.Env = append(os.Environ(), "CGO_ENABLED=1", "GOFLAGS=-mod=mod")
	out, err := build.CombinedOutput()
	require.NoError(t, err, "go build -buildmode=c-archive:\n%s", out)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.c"), []byte(cgoMain), 0o644))
	prog := filepath.Join(dir, "prog")
	link := exec.Command(cc, "-o", prog, "main.c", archive, "-lpthread", "-ldl")
	link.Dir = dir
	out, err = link.CombinedOutput()
	require.NoError(t, err, "cc:\n%s", out)

	t.Run("calls", func(t *testing.T) {
		out, err := exec.Command(prog).CombinedOutput()
		require.NoError(t, err, "%s", out)
		assert.Equal(t, "value=42\ntotal=5\nlinked=1\nsame=1\ndone\n", string(out))
	})

	aborts := []struct {
		mode string
		want string
	}{
		{"null-self", "Widget_value: NULL self provided"},
		{"null-arg", "Gadget_Add: NULL delta provided"},
		{"use-after-drop", "invalid handle"},
	}
	for _, tt := range aborts {
		t.Run(tt.mode, func(t *testing.T) {
			out, err := exec.Command(prog, tt.mode).CombinedOutput()
			require.Error(t, err, "%s", out)
			assert.Contains(t, string(out), tt.want)
			assert.NotContains(t, string(out), "done")
		})
	}
}
