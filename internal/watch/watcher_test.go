package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
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

func TestRunCallsBackOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "problem.mgl")
	require.NoError(t, os.WriteFile(path, []byte("a."), 0o644))

	w, err := New(path, 20*time.Millisecond)
	require.NoError(t, err)

	var calls atomic.Int32
	changed := make(chan struct{}, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) error {
			calls.Add(1)
			changed <- struct{}{}
			return errors.New("handler errors are only logged")
		})
	}()

	// Other files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.mgl"), []byte("b."), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("a.\nb."), 0o644))

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestNewFailsForMissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing", "problem.mgl"), 0)
	assert.Error(t, err)
}
