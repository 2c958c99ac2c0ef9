package handler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/doorwatch-io/doorwatch/internal/camera"
	"github.com/doorwatch-io/doorwatch/internal/domain"
	"github.com/doorwatch-io/doorwatch/internal/identity"
	"github.com/doorwatch-io/doorwatch/internal/metrics"
)

// streamBoundary separates the parts of the multipart-replace stream.
// Clients key on this exact token; it is part of the wire contract.
const streamBoundary = "123456789000000000000987654321"

// CameraHandler serves on-demand captures and the MJPEG streams.
type CameraHandler struct {
	cam        *camera.Camera
	cell       *identity.Cell
	frameDelay time.Duration
	logger     *slog.Logger
}

func NewCameraHandler(cam *camera.Camera, cell *identity.Cell, frameDelay time.Duration, logger *slog.Logger) *CameraHandler {
	return &CameraHandler{
		cam:        cam,
		cell:       cell,
		frameDelay: frameDelay,
		logger:     logger,
	}
}

// Capture handles GET /capture: one frame, waiting on the camera with
// the long snapshot timeout.
func (h *CameraHandler) Capture(c *fiber.Ctx) error {
	frame, err := h.cam.Frame(c.Context(), camera.SnapshotTimeout)
	if err != nil {
		if errors.Is(err, domain.ErrCameraBusy) {
			metrics.RecordCameraBusy("snapshot")
		}
		return err
	}

	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="capture.jpg"`)
	return c.Send(frame)
}

// Stream handles GET /stream: a continuous multipart-replace MJPEG
// stream. A frame the camera cannot serve in time is simply skipped;
// the viewer sees the next one.
func (h *CameraHandler) Stream(c *fiber.Ctx) error {
	return h.stream(c, "live", false)
}

// RecognitionStream handles GET /recognition_stream: the same stream
// with the current identity attached to every part as X-Face-Name.
func (h *CameraHandler) RecognitionStream(c *fiber.Ctx) error {
	return h.stream(c, "recognition", true)
}

func (h *CameraHandler) stream(c *fiber.Ctx, name string, withIdentity bool) error {
	c.Set(fiber.HeaderContentType, "multipart/x-mixed-replace; boundary="+streamBoundary)
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "close")

	h.logger.Info("stream client connected", slog.String("stream", name))

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer h.logger.Info("stream client disconnected", slog.String("stream", name))

		ctx := context.Background()
		for {
			frame, err := h.cam.Frame(ctx, camera.StreamTimeout)
			if err != nil {
				if errors.Is(err, domain.ErrCameraBusy) {
					metrics.RecordCameraBusy("stream")
					time.Sleep(camera.StreamRetryDelay)
					continue
				}
				return
			}

			if err := writePart(w, frame, h.identityHeader(withIdentity)); err != nil {
				return
			}
			metrics.RecordStreamFrame(name)

			time.Sleep(h.frameDelay)
		}
	}))

	return nil
}

func (h *CameraHandler) identityHeader(withIdentity bool) string {
	if !withIdentity {
		return ""
	}
	return h.cell.Get()
}

func writePart(w *bufio.Writer, frame []byte, faceName string) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n", streamBoundary, len(frame)); err != nil {
		return err
	}
	if faceName != "" {
		if _, err := fmt.Fprintf(w, "X-Face-Name: %s\r\n", faceName); err != nil {
			return err
		}
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}
	return w.Flush()
}
