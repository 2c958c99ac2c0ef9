package ws

import "time"

type EventType string

const (
	EventIdentityRecognized EventType = "identity.recognized"
	EventFaceEnrolled       EventType = "face.enrolled"
	EventFaceDeleted        EventType = "face.deleted"
	EventDatabaseReset      EventType = "database.reset"
)

type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
