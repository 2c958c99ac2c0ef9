package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/doorwatch-io/doorwatch/internal/camera"
	"github.com/doorwatch-io/doorwatch/internal/domain"
	"github.com/doorwatch-io/doorwatch/internal/identity"
	"github.com/doorwatch-io/doorwatch/internal/metrics"
	"github.com/doorwatch-io/doorwatch/internal/multipart"
	"github.com/doorwatch-io/doorwatch/internal/notify"
	"github.com/doorwatch-io/doorwatch/internal/ws"
)

// MaxUploadSize bounds enrollment upload bodies. The fiber app's
// BodyLimit must match, or fiber rejects large uploads before the
// handler's own check runs.
const MaxUploadSize = 10 * 1024 * 1024

// FaceStore is the slice of the identity store the handlers need.
type FaceStore interface {
	Enroll(ctx context.Context, image []byte, name string) (domain.FaceSlot, error)
	Delete(ctx context.Context, id int) error
	DeleteAll(ctx context.Context) error
	Reset(ctx context.Context) error
	Faces() []domain.FaceSlot
	EnrolledCount() int
}

// Notifier accepts events for best-effort asynchronous delivery.
type Notifier interface {
	Enqueue(event notify.Event)
}

// FaceHandler serves enrollment and identity-table administration.
type FaceHandler struct {
	store    FaceStore
	cam      *camera.Camera
	cell     *identity.Cell
	notifier Notifier
	hub      *ws.Hub
	logger   *slog.Logger
}

func NewFaceHandler(store FaceStore, cam *camera.Camera, cell *identity.Cell, notifier Notifier, hub *ws.Hub, logger *slog.Logger) *FaceHandler {
	return &FaceHandler{
		store:    store,
		cam:      cam,
		cell:     cell,
		notifier: notifier,
		hub:      hub,
		logger:   logger,
	}
}

// EnrollResponse is the mutation envelope shared by enroll, delete and
// reset endpoints.
type EnrollResponse struct {
	Success bool   `json:"success"`
	ID      int    `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message,omitempty"`
}

// FacesResponse lists the enrolled identity table.
type FacesResponse struct {
	Count int         `json:"count"`
	Faces []FaceEntry `json:"faces"`
}

type FaceEntry struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// EnrollUpload handles POST /enroll: a camera-app upload whose body is
// scanned by the narrow multipart extractor, not a general parser.
func (h *FaceHandler) EnrollUpload(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return domain.ErrBadRequest.WithError(errors.New("empty body"))
	}
	if len(body) > MaxUploadSize {
		return domain.ErrValidationFailed.WithError(errors.New("upload too large"))
	}

	upload, err := multipart.Extract(body)
	if err != nil {
		return err
	}

	return h.enroll(c, upload.Image, upload.Name)
}

// EnrollCapture handles GET /enroll?name=: the appliance captures the
// frame itself, waiting on the camera with the enroll timeout.
func (h *FaceHandler) EnrollCapture(c *fiber.Ctx) error {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		return domain.ErrValidationFailed.WithError(errors.New("name is required"))
	}

	frame, err := h.cam.Frame(c.Context(), camera.EnrollTimeout)
	if err != nil {
		if errors.Is(err, domain.ErrCameraBusy) {
			metrics.RecordCameraBusy("enroll")
		}
		return err
	}

	return h.enroll(c, frame, name)
}

func (h *FaceHandler) enroll(c *fiber.Ctx, image []byte, name string) error {
	slot, err := h.store.Enroll(c.Context(), image, name)
	if err != nil {
		return err
	}

	metrics.SetEnrolledFaces(h.store.EnrolledCount())
	h.hub.Broadcast(ws.EventFaceEnrolled, FaceEntry{ID: slot.ID, Name: slot.Name})
	h.notifier.Enqueue(notify.NewEvent(notify.EventFaceEnrolled, notify.FaceData{
		ID:   slot.ID,
		Name: slot.Name,
	}))

	return c.JSON(EnrollResponse{
		Success: true,
		ID:      slot.ID,
		Name:    slot.Name,
	})
}

// Faces handles GET /faces.
func (h *FaceHandler) Faces(c *fiber.Ctx) error {
	slots := h.store.Faces()
	entries := make([]FaceEntry, 0, len(slots))
	for _, s := range slots {
		entries = append(entries, FaceEntry{ID: s.ID, Name: s.Name})
	}

	return c.JSON(FacesResponse{
		Count: len(entries),
		Faces: entries,
	})
}

// Delete handles DELETE /faces/:id.
func (h *FaceHandler) Delete(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return domain.ErrValidationFailed.WithError(errors.New("id must be an integer"))
	}

	if err := h.store.Delete(c.Context(), id); err != nil {
		return err
	}

	metrics.SetEnrolledFaces(h.store.EnrolledCount())
	h.hub.Broadcast(ws.EventFaceDeleted, FaceEntry{ID: id})
	h.notifier.Enqueue(notify.NewEvent(notify.EventFaceDeleted, notify.FaceData{ID: id}))

	return c.JSON(EnrollResponse{Success: true, ID: id})
}

// DeleteAll handles GET /delete_all.
func (h *FaceHandler) DeleteAll(c *fiber.Ctx) error {
	if err := h.store.DeleteAll(c.Context()); err != nil {
		return err
	}

	h.cell.Set(domain.UnknownName)
	metrics.SetEnrolledFaces(0)
	h.hub.Broadcast(ws.EventDatabaseReset, nil)

	return c.JSON(EnrollResponse{Success: true, Message: "all faces deleted"})
}

// ResetDatabase handles GET /reset_database: wipes both the engine
// feature database and the metadata artifact, then rebuilds the engine.
func (h *FaceHandler) ResetDatabase(c *fiber.Ctx) error {
	if err := h.store.Reset(c.Context()); err != nil {
		return err
	}

	h.cell.Set(domain.UnknownName)
	metrics.SetEnrolledFaces(0)
	h.hub.Broadcast(ws.EventDatabaseReset, nil)
	h.notifier.Enqueue(notify.NewEvent(notify.EventDatabaseReset, nil))

	return c.JSON(EnrollResponse{Success: true, Message: "database reset"})
}

// RecognizedName handles GET /recognized_name: a point-in-time read of
// the identity cell.
func (h *FaceHandler) RecognizedName(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"name": h.cell.Get()})
}
