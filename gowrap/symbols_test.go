package gowrap

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolRecorder(t *testing.T) {
	r := NewSymbolRecorder("widget", false)
	runPass(t, "widget", r)
	table := r.Table()

	assert.Equal(t, "widget", table.Package)
	assert.Equal(t, []string{"Widget"}, table.Types)
	require.Len(t, table.Symbols, 3)

	value, ok := table.Lookup("Widget_value")
	require.True(t, ok)
	assert.Equal(t, "instance", value.Category)
	assert.Equal(t, []string{"void*"}, value.Params)
	assert.Equal(t, "uint64_t", value.Return)
	assert.Equal(t, "uint64_t Widget_value(void* this);", value.Prototype)

	create, ok := table.Lookup("Widget_make")
	require.True(t, ok)
	assert.Equal(t, "static", create.Category)
	assert.Equal(t, []string{"uint64_t"}, create.Params)
	assert.Equal(t, "Widget *", create.Return)

	drop, ok := table.Lookup("Widget_drop")
	require.True(t, ok)
	assert.Equal(t, "destructor", drop.Category)
	assert.Equal(t, "void", drop.Return)

	_, ok = table.Lookup("Widget_missing")
	assert.False(t, ok)
}

func TestSymbolRecorderLifecycle(t *testing.T) {
	r := NewSymbolRecorder("widget", true)
	runPass(t, "widget", r)

	ctor, ok := r.Table().Lookup("Widget_new")
	require.True(t, ok)
	assert.Equal(t, "lifecycle", ctor.Category)
	assert.Equal(t, "Widget * Widget_new(void);", ctor.Prototype)

	dtor, ok := r.Table().Lookup("Widget_destroy")
	require.True(t, ok)
	assert.Equal(t, "void Widget_destroy(void* this);", dtor.Prototype)
}

func TestSymbolsRoundTrip(t *testing.T) {
	r := NewSymbolRecorder("gadget", true)
	runPass(t, "gadget", r)

	data, err := MarshalSymbols(r.Table())
	require.NoError(t, err)

	again, err := MarshalSymbols(r.Table())
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, again), "canonical encoding is not stable")

	got, err := UnmarshalSymbols(data)
	require.NoError(t, err)
	assert.Equal(t, r.Table(), got)
}

func TestWriteReadSymbols(t *testing.T) {
	r := NewSymbolRecorder("widget", false)
	runPass(t, "widget", r)

	path := filepath.Join(t.TempDir(), "symbols.cbor")
	require.NoError(t, WriteSymbols(path, r.Table()))

	got, err := ReadSymbols(path)
	require.NoError(t, err)
	assert.Equal(t, r.Table(), got)
}

func TestWriteSymbolsFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "symbols.cbor")
	err := WriteSymbols(path, &SymbolTable{Package: "p"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrArtifactWrite))
	assert.Contains(t, err.Error(), path)
}

func TestUnmarshalSymbolsGarbage(t *testing.T) {
	_, err := UnmarshalSymbols([]byte{0xff, 0x00})
	assert.Error(t, err)
}
