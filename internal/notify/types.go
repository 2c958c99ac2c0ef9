package notify

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventIdentityRecognized = "identity.recognized"
	EventFaceEnrolled       = "face.enrolled"
	EventFaceDeleted        = "face.deleted"
	EventDatabaseReset      = "database.reset"
	EventStartup            = "appliance.started"
)

// Event is the payload delivered to the configured webhook endpoint.
type Event struct {
	ID        uuid.UUID   `json:"id"`
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent stamps a fresh event of the given type.
func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// RecognitionData is the payload body for identity.recognized events.
type RecognitionData struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
}

// FaceData is the payload body for face lifecycle events.
type FaceData struct {
	Name string `json:"name,omitempty"`
	ID   int    `json:"id"`
}
