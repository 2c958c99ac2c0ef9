package domain

const (
	// Capacity is the fixed number of identity slots the appliance can
	// mirror locally. The engine may accept more templates than this;
	// slots beyond Capacity are never written (see store.Enroll).
	Capacity = 10

	// MaxNameLen bounds a slot name including the terminating byte in
	// the on-disk record.
	MaxNameLen = 32

	// UnknownName is the sentinel published when the last recognition
	// cycle found no known identity.
	UnknownName = "Unknown"
)

// FaceSlot is one persisted identity record. Slot ids are allocated by
// the recognition engine, monotonically; the store never reuses an id
// vacated by deletion.
type FaceSlot struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Enrolled      bool   `json:"-"`
	TemplateCount int    `json:"-"`
}
