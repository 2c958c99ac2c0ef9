// Package camera serializes access to the single frame source shared by the
// live stream, the recognition loop, and on-demand captures.
package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/doorwatch-io/doorwatch/internal/domain"
)

// Acquisition timeouts by consumer role. Streams and the recognition loop
// use the short timeout and skip on contention; explicit user actions wait.
const (
	StreamTimeout      = 100 * time.Millisecond
	RecognitionTimeout = 100 * time.Millisecond
	SnapshotTimeout    = 2 * time.Second
	EnrollTimeout      = 2 * time.Second

	// StreamRetryDelay spaces out reacquisition attempts after a
	// skipped frame so a stream cannot starve other consumers.
	StreamRetryDelay = 50 * time.Millisecond
)

// FrameSource produces one encoded JPEG frame on demand. The returned
// buffer must not be modified by the caller.
type FrameSource interface {
	Capture(ctx context.Context) ([]byte, error)
}

// Permit is the transient right to use the camera. Release is safe to call
// more than once and must be called on every exit path.
type Permit struct {
	once sync.Once
	cam  *Camera
}

func (p *Permit) Release() {
	p.once.Do(func() {
		<-p.cam.sem
	})
}

// Camera arbitrates a FrameSource between concurrent consumers. Exactly one
// permit is outstanding at any instant.
type Camera struct {
	source FrameSource
	sem    chan struct{}
}

func New(source FrameSource) *Camera {
	return &Camera{
		source: source,
		sem:    make(chan struct{}, 1),
	}
}

// Acquire returns a permit or domain.ErrCameraBusy if the camera is held
// elsewhere for the full timeout. Nested acquisition deadlocks by contract;
// a holder must release before any operation that could acquire again.
func (c *Camera) Acquire(ctx context.Context, timeout time.Duration) (*Permit, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case c.sem <- struct{}{}:
		return &Permit{cam: c}, nil
	case <-timer.C:
		return nil, domain.ErrCameraBusy
	case <-ctx.Done():
		return nil, domain.ErrCameraBusy.WithError(ctx.Err())
	}
}

// TryAcquire attempts acquisition without waiting.
func (c *Camera) TryAcquire() (*Permit, bool) {
	select {
	case c.sem <- struct{}{}:
		return &Permit{cam: c}, true
	default:
		return nil, false
	}
}

// Frame acquires the camera, captures one frame and releases. The permit is
// never held across anything but the capture call itself.
func (c *Camera) Frame(ctx context.Context, timeout time.Duration) ([]byte, error) {
	permit, err := c.Acquire(ctx, timeout)
	if err != nil {
		return nil, err
	}
	defer permit.Release()

	frame, err := c.source.Capture(ctx)
	if err != nil {
		return nil, domain.ErrCaptureFailed.WithError(fmt.Errorf("capture frame: %w", err))
	}
	return frame, nil
}
