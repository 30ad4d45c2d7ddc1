package ffirt

import (
	"fmt"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	n      uint64
	closed bool
}

type other struct{}

func TestSelfResolvesLiveHandle(t *testing.T) {
	c := &counter{n: 7}
	h := New(c)
	require.NotNil(t, h)
	defer Default.Delete(h)

	got := Self[counter](h, "Counter_value")
	assert.Same(t, c, got)
}

func TestSelfAbortsOnNull(t *testing.T) {
	assert.PanicsWithError(t, "Counter_value: NULL self provided", func() {
		Self[counter](nil, "Counter_value")
	})
}

func TestRefAbortsOnNullNamingParam(t *testing.T) {
	assert.PanicsWithError(t, "Counter_merge: NULL other provided", func() {
		Ref[counter](nil, "Counter_merge", "other")
	})
}

func TestNonNil(t *testing.T) {
	v := uint64(3)
	assert.Same(t, &v, NonNil(&v, "Counter_add", "delta"))

	assert.PanicsWithError(t, "Counter_add: NULL delta provided", func() {
		NonNil[uint64](nil, "Counter_add", "delta")
	})
}

func TestNewNilIsNullHandle(t *testing.T) {
	assert.Nil(t, New[counter](nil))
}

func TestReleaseInvalidatesHandle(t *testing.T) {
	before := Default.Len()
	c := &counter{}
	h := New(c)
	require.Equal(t, before+1, Default.Len())

	got := Release[counter](h, "Counter_drop")
	got.closed = true
	assert.True(t, c.closed)
	assert.Equal(t, before, Default.Len())

	assert.Panics(t, func() { Self[counter](h, "Counter_value") })
	assert.Panics(t, func() { Release[counter](h, "Counter_drop") })
}

func TestReleaseAbortsOnNull(t *testing.T) {
	assert.PanicsWithError(t, "Counter_drop: NULL self provided", func() {
		Release[counter](nil, "Counter_drop")
	})
}

func TestTypeMismatchAborts(t *testing.T) {
	h := New(&other{})
	defer Default.Delete(h)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		herr, ok := r.(*HandleError)
		require.True(t, ok)
		assert.True(t, herr.Mismatch)
		assert.Contains(t, herr.Error(), "wrong type")
	}()
	Self[counter](h, "Counter_value")
}

func TestTableHandlesAreUnique(t *testing.T) {
	tbl := NewTable()
	var (
		mu   sync.Mutex
		seen = make(map[unsafe.Pointer]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < 32; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := tbl.Put(i)
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, seen[h])
			seen[h] = true
		}()
	}
	wg.Wait()
	assert.Equal(t, 32, tbl.Len())

	for h := range seen {
		_, ok := tbl.Delete(h)
		assert.True(t, ok)
	}
	assert.Zero(t, tbl.Len())
}

func TestNewReusesLiveHandle(t *testing.T) {
	before := Default.Len()
	c := &counter{n: 4}

	h1 := New(c)
	h2 := New(c)
	assert.Equal(t, h1, h2)
	assert.Equal(t, before+1, Default.Len())

	Release[counter](h1, "Counter_drop")
	assert.Equal(t, before, Default.Len())
	assert.PanicsWithError(t, "Counter_value: invalid handle "+fmt.Sprintf("%#x", uintptr(h2))+" for self", func() {
		Self[counter](h2, "Counter_value")
	})

	// Registering the value again after release yields a fresh handle.
	h3 := New(c)
	defer Default.Delete(h3)
	assert.NotEqual(t, h1, h3)
}

func TestDistinctValuesGetDistinctHandles(t *testing.T) {
	tbl := NewTable()
	a, b := &counter{}, &counter{}
	ha, hb := tbl.Put(a), tbl.Put(b)
	assert.NotEqual(t, ha, hb)

	_, ok := tbl.Delete(ha)
	require.True(t, ok)
	assert.Equal(t, hb, tbl.Put(b))
	assert.Equal(t, 1, tbl.Len())
}
