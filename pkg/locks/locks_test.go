package locks

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadersCoexist(t *testing.T) {
	table := NewTable()
	ctx := context.Background()

	g1, err := Acquire(ctx, table, []string{"a", "b"}, Read)
	require.NoError(t, err)
	g2, err := Acquire(ctx, table, []string{"a"}, Read)
	require.NoError(t, err)

	g1.Release()
	g2.Release()
}

func TestWriterExcludesReaders(t *testing.T) {
	table := NewTable()
	ctx := context.Background()

	w, err := Acquire(ctx, table, []string{"a"}, Write)
	require.NoError(t, err)

	assert.Nil(t, TryAcquire(table, []string{"a"}, Read))
	assert.Nil(t, TryAcquire(table, []string{"a"}, Write))
	assert.Nil(t, TryAcquire(table, []string{"a"}, Stomp))

	w.Release()
	r := TryAcquire(table, []string{"a"}, Read)
	require.NotNil(t, r)
	r.Release()
}

func TestMutualExclusionInvariant(t *testing.T) {
	table := NewTable()
	ctx := context.Background()

	var active int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		mode := Read
		if i%4 == 0 {
			mode = Write
		}
		go func(mode Mode) {
			defer wg.Done()
			g, err := Acquire(ctx, table, []string{"shared"}, mode)
			if err != nil {
				return
			}
			if mode == Write {
				n := atomic.AddInt32(&active, 1)
				assert.Equal(t, int32(1), n, "writer must be exclusive")
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&active, -1)
			}
			g.Release()
		}(mode)
	}
	wg.Wait()
}

func TestStompersCoexistWithEachOther(t *testing.T) {
	table := NewTable()
	ctx := context.Background()

	s1, err := Acquire(ctx, table, []string{"a"}, Stomp)
	require.NoError(t, err)
	s2, err := Acquire(ctx, table, []string{"a"}, Stomp)
	require.NoError(t, err)

	// but not with readers or writers
	assert.Nil(t, TryAcquire(table, []string{"a"}, Read))
	assert.Nil(t, TryAcquire(table, []string{"a"}, Write))

	s1.Release()
	s2.Release()
}

func TestPendingWriterBlocksNewReaders(t *testing.T) {
	table := NewTable()
	ctx := context.Background()

	r1, err := Acquire(ctx, table, []string{"a"}, Read)
	require.NoError(t, err)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		w, err := Acquire(ctx, table, []string{"a"}, Write)
		if err == nil {
			w.Release()
		}
	}()

	// wait until the writer has parked
	require.Eventually(t, func() bool {
		if g := TryAcquire(table, []string{"a"}, Read); g != nil {
			g.Release()
			return false
		}
		return true
	}, time.Second, time.Millisecond, "a parked writer should block new readers")

	r1.Release()
	select {
	case <-writerDone:
	case <-time.After(time.Second):
		t.Fatal("writer never acquired after reader release")
	}
}

func TestAllOrNothingAcquisition(t *testing.T) {
	table := NewTable()
	ctx := context.Background()

	w, err := Acquire(ctx, table, []string{"b"}, Write)
	require.NoError(t, err)

	// a set overlapping the held path is wholly unavailable
	assert.Nil(t, TryAcquire(table, []string{"a", "b", "c"}, Write))
	// "a" and "c" must not have been partially reserved
	g, err := Acquire(ctx, table, []string{"a", "c"}, Write)
	require.NoError(t, err)

	g.Release()
	w.Release()
}

func TestAcquireObservesCancellation(t *testing.T) {
	table := NewTable()
	w, err := Acquire(context.Background(), table, []string{"a"}, Write)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := Acquire(ctx, table, []string{"a"}, Write)
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled acquire never returned")
	}

	// the cancelled waiter must not leave the slot wedged
	w.Release()
	g := TryAcquire(table, []string{"a"}, Read)
	require.NotNil(t, g)
	g.Release()
}

func TestReleaseIsIdempotent(t *testing.T) {
	table := NewTable()
	g, err := Acquire(context.Background(), table, []string{"a"}, Write)
	require.NoError(t, err)
	g.Release()
	g.Release()

	g2 := TryAcquire(table, []string{"a"}, Write)
	require.NotNil(t, g2)
	g2.Release()
}

func TestGuardNormalizesPaths(t *testing.T) {
	table := NewTable()
	g, err := Acquire(context.Background(), table, []string{"b", "a", "b"}, Read)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, g.Paths())
	assert.Equal(t, Read, g.Mode())
	g.Release()
}
