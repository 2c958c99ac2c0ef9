// Package watcher runs the periodic recognition loop: capture a frame,
// recognize, publish the current identity, and emit debounced
// notifications.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/doorwatch-io/doorwatch/internal/camera"
	"github.com/doorwatch-io/doorwatch/internal/domain"
	"github.com/doorwatch-io/doorwatch/internal/identity"
	"github.com/doorwatch-io/doorwatch/internal/metrics"
	"github.com/doorwatch-io/doorwatch/internal/notify"
	"github.com/doorwatch-io/doorwatch/internal/status"
	"github.com/doorwatch-io/doorwatch/internal/ws"
)

// Recognizer resolves a frame to an enrolled identity.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (domain.FaceSlot, error)
}

// Notifier accepts events for best-effort asynchronous delivery.
type Notifier interface {
	Enqueue(event notify.Event)
}

// Broadcaster fans an event out to connected websocket clients.
type Broadcaster interface {
	Broadcast(eventType ws.EventType, data interface{})
}

// Watcher is the single writer of the current-identity cell and of the
// notification debounce state. A recognized name is re-emitted only when
// it differs from the last emitted name or the cooldown has elapsed;
// unknown results update the cell and nothing else.
type Watcher struct {
	cam        *camera.Camera
	recognizer Recognizer
	cell       *identity.Cell
	notifier   Notifier
	hub        Broadcaster
	indicator  status.Indicator
	logger     *slog.Logger

	interval time.Duration
	cooldown time.Duration
	now      func() time.Time

	lastEmittedName string
	lastEmittedAt   time.Time
}

func New(
	cam *camera.Camera,
	recognizer Recognizer,
	cell *identity.Cell,
	notifier Notifier,
	hub Broadcaster,
	indicator status.Indicator,
	interval, cooldown time.Duration,
	logger *slog.Logger,
) *Watcher {
	return &Watcher{
		cam:        cam,
		recognizer: recognizer,
		cell:       cell,
		notifier:   notifier,
		hub:        hub,
		indicator:  indicator,
		logger:     logger,
		interval:   interval,
		cooldown:   cooldown,
		now:        time.Now,
	}
}

// Run drives recognition cycles until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("recognition watcher started",
		slog.Duration("interval", w.interval),
		slog.Duration("cooldown", w.cooldown),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("recognition watcher stopped")
			return
		case <-ticker.C:
			w.cycle(ctx)
		}
	}
}

// cycle runs one recognition pass. The camera permit is held only for
// the capture itself, never across recognition compute.
func (w *Watcher) cycle(ctx context.Context) {
	start := w.now()

	frame, err := w.cam.Frame(ctx, camera.RecognitionTimeout)
	if err != nil {
		if errors.Is(err, domain.ErrCameraBusy) {
			metrics.RecordCameraBusy("recognition")
			metrics.RecordCycle("skipped", w.now().Sub(start))
			return
		}
		w.logger.Warn("recognition capture failed", slog.Any("error", err))
		metrics.RecordCycle("error", w.now().Sub(start))
		return
	}

	slot, err := w.recognizer.Recognize(ctx, frame)
	switch {
	case err == nil:
		if slot.Name == "" {
			// A slot that survived a reconcile without a recorded name
			// is not a presentable identity.
			w.cell.Set(domain.UnknownName)
			metrics.RecordCycle("unknown", w.now().Sub(start))
			return
		}
		w.cell.Set(slot.Name)
		w.maybeNotify(slot)
		metrics.RecordCycle("match", w.now().Sub(start))

	case errors.Is(err, domain.ErrFaceNotFound), errors.Is(err, domain.ErrStoreDesync):
		w.cell.Set(domain.UnknownName)
		metrics.RecordCycle("unknown", w.now().Sub(start))

	case errors.Is(err, domain.ErrNoFaceDetected):
		w.cell.Set(domain.UnknownName)
		metrics.RecordCycle("no_face", w.now().Sub(start))

	default:
		w.logger.Warn("recognition failed", slog.Any("error", err))
		metrics.RecordCycle("error", w.now().Sub(start))
	}
}

func (w *Watcher) maybeNotify(slot domain.FaceSlot) {
	now := w.now()
	if slot.Name == w.lastEmittedName && now.Sub(w.lastEmittedAt) <= w.cooldown {
		return
	}

	data := notify.RecognitionData{Name: slot.Name, ID: slot.ID}
	w.notifier.Enqueue(notify.NewEvent(notify.EventIdentityRecognized, data))
	w.hub.Broadcast(ws.EventIdentityRecognized, data)
	w.indicator.Pulse(slot.Name)
	metrics.RecordNotification()

	w.logger.Info("identity notification emitted",
		slog.String("name", slot.Name),
		slog.Int("id", slot.ID),
	)

	w.lastEmittedName = slot.Name
	w.lastEmittedAt = now
}
