// Package engine defines the recognition engine contract. The engine is an
// external collaborator: it owns its feature database and its id allocation.
// The identity store only mirrors ids and reads the feature count for
// reconciliation.
package engine

import "context"

// Region is a detected face area in normalized image coordinates.
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Score  float64 `json:"score"`
}

// Match is one ranked recognition result.
type Match struct {
	ID         int     `json:"id"`
	Similarity float64 `json:"similarity"`
}

// Engine is the recognition collaborator surface. Contract: a successful
// Enroll increases FeatureCount by one and the new feature's id equals
// FeatureCount()-1. Ids are engine-allocated; the store never invents them.
type Engine interface {
	// Detect returns the face regions found in an encoded image.
	// Zero regions is a normal result, not an error.
	Detect(ctx context.Context, image []byte) ([]Region, error)

	// Recognize ranks the enrolled features against the first detected
	// region. An empty result means no feature matched.
	Recognize(ctx context.Context, image []byte, regions []Region) ([]Match, error)

	// Enroll adds one feature template extracted from the first region.
	Enroll(ctx context.Context, image []byte, regions []Region) error

	// DeleteFeature removes the feature with the given id.
	DeleteFeature(ctx context.Context, id int) error

	// ClearAll removes every feature but keeps the engine usable.
	ClearAll(ctx context.Context) error

	// FeatureCount reports the number of stored features. Authoritative
	// over the store's metadata during reconciliation.
	FeatureCount() int

	// Reset discards the engine's feature artifact entirely and leaves
	// a fresh, lazily-initialized engine behind. Irreversible.
	Reset(ctx context.Context) error

	Close() error
}

// Factory builds a fresh Engine instance. ResetDatabase discards the
// current engine and asks the factory for a new, lazily-initialized one.
type Factory func(ctx context.Context) (Engine, error)
