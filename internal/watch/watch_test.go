package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(line)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestWatcher_CallsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acal.csv")
	appendLine(t, path, "TIME,TEMP,CAL_72\n")

	w, err := New(path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func() { calls.Add(1) }) }()

	appendLine(t, path, "01/03/2024-12:00:00,36.2,7.2\n")
	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acal.csv")
	other := filepath.Join(dir, "notes.txt")

	w, err := New(path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func() { calls.Add(1) }) }()

	appendLine(t, other, "hello\n")
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	// The watched file may be created after the watcher starts.
	appendLine(t, path, "TIME\n")
	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_SerializesCallbacks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acal.csv")
	appendLine(t, path, "TIME\n")

	w, err := New(path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var (
		mu        sync.Mutex
		running   int
		overlap   bool
		completed atomic.Int32
	)
	started := make(chan struct{}, 16)
	release := make(chan struct{})
	fn := func() {
		mu.Lock()
		running++
		if running > 1 {
			overlap = true
		}
		mu.Unlock()

		started <- struct{}{}
		<-release

		mu.Lock()
		running--
		mu.Unlock()
		completed.Add(1)
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, fn) }()

	appendLine(t, path, "x\n")
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first callback never started")
	}

	// The first callback is still blocked; these changes must wait for it.
	for i := 0; i < 3; i++ {
		time.Sleep(50 * time.Millisecond)
		appendLine(t, path, "y\n")
	}
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, started, 0, "no second callback while the first runs")

	close(release)
	assert.Eventually(t, func() bool { return completed.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, overlap, "callbacks must not run concurrently")
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope", "acal.csv"), nil)
	assert.Error(t, err)
}

func TestWatcher_Close(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "acal.csv"), nil)
	require.NoError(t, err)
	assert.NoError(t, w.Close())
}
