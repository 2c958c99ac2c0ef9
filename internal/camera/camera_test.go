package camera

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doorwatch-io/doorwatch/internal/domain"
)

func TestCamera_MutualExclusion(t *testing.T) {
	cam := New(&StaticSource{Data: []byte("frame")})

	var holders int32
	var maxHolders int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				permit, err := cam.Acquire(context.Background(), time.Second)
				if err != nil {
					continue
				}
				n := atomic.AddInt32(&holders, 1)
				for {
					m := atomic.LoadInt32(&maxHolders)
					if n <= m || atomic.CompareAndSwapInt32(&maxHolders, m, n) {
						break
					}
				}
				atomic.AddInt32(&holders, -1)
				permit.Release()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxHolders), "more than one permit outstanding")
}

func TestCamera_AcquireTimeout(t *testing.T) {
	cam := New(&StaticSource{Data: []byte("frame")})

	permit, err := cam.Acquire(context.Background(), time.Second)
	require.NoError(t, err)

	_, err = cam.Acquire(context.Background(), 20*time.Millisecond)
	assert.ErrorIs(t, err, domain.ErrCameraBusy)

	permit.Release()

	// Release is observed by a subsequent acquirer within its timeout.
	permit2, err := cam.Acquire(context.Background(), time.Second)
	require.NoError(t, err)
	permit2.Release()
}

func TestCamera_ReleaseIdempotent(t *testing.T) {
	cam := New(&StaticSource{Data: []byte("frame")})

	permit, err := cam.Acquire(context.Background(), time.Second)
	require.NoError(t, err)

	permit.Release()
	permit.Release() // must not free a permit twice

	permit2, err := cam.Acquire(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	defer permit2.Release()

	_, ok := cam.TryAcquire()
	assert.False(t, ok, "double release freed a second permit")
}

func TestCamera_Frame(t *testing.T) {
	t.Run("returns captured frame", func(t *testing.T) {
		cam := New(&StaticSource{Data: []byte{0xFF, 0xD8, 0xFF, 0xD9}})

		frame, err := cam.Frame(context.Background(), time.Second)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xFF, 0xD8, 0xFF, 0xD9}, frame)

		// Permit was released on the success path.
		permit, ok := cam.TryAcquire()
		require.True(t, ok)
		permit.Release()
	})

	t.Run("releases on capture failure", func(t *testing.T) {
		cam := New(&StaticSource{Err: errors.New("sensor gone")})

		_, err := cam.Frame(context.Background(), time.Second)
		assert.ErrorIs(t, err, domain.ErrCaptureFailed)

		permit, ok := cam.TryAcquire()
		require.True(t, ok, "permit leaked on error path")
		permit.Release()
	})

	t.Run("busy while held", func(t *testing.T) {
		cam := New(&StaticSource{Data: []byte("frame")})

		permit, err := cam.Acquire(context.Background(), time.Second)
		require.NoError(t, err)
		defer permit.Release()

		_, err = cam.Frame(context.Background(), 20*time.Millisecond)
		assert.ErrorIs(t, err, domain.ErrCameraBusy)
	})
}

func TestFileSource_Cycles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("frame-a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.jpg"), []byte("frame-b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644))

	src, err := NewFileSource(dir)
	require.NoError(t, err)

	var got []string
	for i := 0; i < 4; i++ {
		frame, err := src.Capture(context.Background())
		require.NoError(t, err)
		got = append(got, string(frame))
	}
	assert.Equal(t, []string{"frame-a", "frame-b", "frame-a", "frame-b"}, got)
}

func TestFileSource_EmptyDir(t *testing.T) {
	_, err := NewFileSource(t.TempDir())
	assert.Error(t, err)
}
