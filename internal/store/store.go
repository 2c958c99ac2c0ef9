// Package store keeps the appliance's identity table: a fixed-capacity
// mapping from engine-allocated face id to a named slot, mirrored to a
// binary metadata artifact and reconciled against the recognition engine's
// own feature count. The engine and the metadata are two loosely-coupled
// stores; divergence after a crash is an expected failure mode here, not a
// bug, and the engine's count wins on load.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/doorwatch-io/doorwatch/internal/domain"
	"github.com/doorwatch-io/doorwatch/internal/engine"
)

// Store is safe for concurrent use. Mutations are serialized under one
// lock together with metadata persistence, so concurrent admin requests
// can never interleave partial writes.
type Store struct {
	mu       sync.Mutex
	engine   engine.Engine
	factory  engine.Factory
	slots    [domain.Capacity]domain.FaceSlot
	enrolled int
	metaPath string
	logger   *slog.Logger
}

// Open builds the engine through the factory, loads the metadata artifact
// and reconciles the two stores. Metadata loss is recoverable: it loses
// names, not features, and the store starts empty rather than guessing
// identities for orphaned feature vectors.
func Open(ctx context.Context, factory engine.Factory, metaPath string, logger *slog.Logger) (*Store, error) {
	eng, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("build recognition engine: %w", err)
	}

	s := &Store{
		engine:   eng,
		factory:  factory,
		metaPath: metaPath,
		logger:   logger,
	}

	enrolled, slots, err := readMeta(metaPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("no identity metadata found, starting fresh")
		s.dropOrphans(ctx)
	case err != nil:
		logger.Warn("identity metadata unreadable, starting fresh",
			slog.Any("error", err),
		)
		s.dropOrphans(ctx)
	default:
		s.slots = slots
		s.enrolled = enrolled
		s.reconcile()
	}

	logger.Info("identity store opened",
		slog.Int("enrolled", s.enrolled),
		slog.String("metadata", metaPath),
	)
	return s, nil
}

// dropOrphans discards feature vectors that no metadata describes. With
// the metadata gone there is no name to attach to them, so the store
// starts empty instead of guessing identities.
func (s *Store) dropOrphans(ctx context.Context) {
	count := s.engine.FeatureCount()
	if count == 0 {
		return
	}

	s.logger.Warn("dropping feature vectors with no metadata",
		slog.Int("count", count),
	)
	if err := s.engine.ClearAll(ctx); err != nil {
		s.logger.Error("clear orphaned features", slog.Any("error", err))
	}
}

// reconcile resolves a count mismatch between metadata and engine: the
// engine's feature count is authoritative. Slots the metadata never knew
// about are marked enrolled with an empty name instead of inheriting
// whatever stale bytes were on disk, and slots beyond the engine count
// are cleared.
func (s *Store) reconcile() {
	engineCount := s.engine.FeatureCount()
	if engineCount == s.enrolled {
		return
	}

	s.logger.Warn("identity metadata count disagrees with engine, using engine count",
		slog.Int("metadata_count", s.enrolled),
		slog.Int("engine_count", engineCount),
	)

	for id := 0; id < domain.Capacity; id++ {
		switch {
		case id >= engineCount:
			s.slots[id] = domain.FaceSlot{}
		case !s.slots[id].Enrolled:
			s.slots[id] = domain.FaceSlot{ID: id, Enrolled: true, TemplateCount: 1}
		}
	}
	s.enrolled = engineCount
	s.persistLocked()
}

// Enroll detects a face in image and adds it under the given name. With
// more than one detectable face the first region is used and the ambiguity
// is logged. The new id is engine-allocated; an id beyond the local table
// skips the slot write and reports the table full, even though the engine
// may have kept the template.
func (s *Store) Enroll(ctx context.Context, image []byte, name string) (domain.FaceSlot, error) {
	regions, err := s.engine.Detect(ctx, image)
	if err != nil {
		return domain.FaceSlot{}, domain.ErrEngineFailure.WithError(fmt.Errorf("detect: %w", err))
	}
	if len(regions) == 0 {
		return domain.FaceSlot{}, domain.ErrNoFaceDetected
	}
	if len(regions) > 1 {
		s.logger.Warn("multiple faces detected, using first region",
			slog.Int("regions", len(regions)),
			slog.String("name", name),
		)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.Enroll(ctx, image, regions); err != nil {
		return domain.FaceSlot{}, domain.ErrEngineFailure.WithError(fmt.Errorf("enroll: %w", err))
	}

	id := s.engine.FeatureCount() - 1
	if id >= domain.Capacity {
		s.logger.Warn("engine assigned id beyond local table, slot not written",
			slog.Int("id", id),
			slog.Int("capacity", domain.Capacity),
		)
		return domain.FaceSlot{}, domain.ErrStoreFull
	}

	if len(name) > domain.MaxNameLen-1 {
		name = name[:domain.MaxNameLen-1]
	}
	slot := domain.FaceSlot{ID: id, Name: name, Enrolled: true, TemplateCount: 1}
	s.slots[id] = slot
	s.enrolled = s.engine.FeatureCount()
	s.persistLocked()

	s.logger.Info("face enrolled",
		slog.Int("id", id),
		slog.String("name", name),
		slog.Int("enrolled", s.enrolled),
	)
	return slot, nil
}

// Recognize returns the slot of the best-ranked engine match. A match
// whose id has no enrolled local slot reports ErrStoreDesync: the store
// never fabricates a name for an id it does not know.
func (s *Store) Recognize(ctx context.Context, image []byte) (domain.FaceSlot, error) {
	regions, err := s.engine.Detect(ctx, image)
	if err != nil {
		return domain.FaceSlot{}, domain.ErrEngineFailure.WithError(fmt.Errorf("detect: %w", err))
	}
	if len(regions) == 0 {
		return domain.FaceSlot{}, domain.ErrNoFaceDetected
	}

	matches, err := s.engine.Recognize(ctx, image, regions)
	if err != nil {
		return domain.FaceSlot{}, domain.ErrEngineFailure.WithError(fmt.Errorf("recognize: %w", err))
	}
	if len(matches) == 0 {
		return domain.FaceSlot{}, domain.ErrFaceNotFound
	}

	best := matches[0]

	s.mu.Lock()
	defer s.mu.Unlock()

	if best.ID < 0 || best.ID >= domain.Capacity || !s.slots[best.ID].Enrolled {
		s.logger.Warn("engine match has no local slot",
			slog.Int("id", best.ID),
			slog.Float64("similarity", best.Similarity),
		)
		return domain.FaceSlot{}, domain.ErrStoreDesync
	}

	return s.slots[best.ID], nil
}

// Delete clears one slot and removes its feature from the engine.
func (s *Store) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id < 0 || id >= domain.Capacity || !s.slots[id].Enrolled {
		return domain.ErrFaceNotFound
	}

	if err := s.engine.DeleteFeature(ctx, id); err != nil {
		return domain.ErrEngineFailure.WithError(fmt.Errorf("delete feature %d: %w", id, err))
	}

	s.slots[id] = domain.FaceSlot{}
	s.enrolled--
	s.persistLocked()

	s.logger.Info("face deleted", slog.Int("id", id))
	return nil
}

// DeleteAll clears the engine's features and the whole local table. The
// engine call goes first; on failure the table is untouched.
func (s *Store) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.ClearAll(ctx); err != nil {
		return domain.ErrEngineFailure.WithError(fmt.Errorf("clear all: %w", err))
	}

	s.clearLocked()
	s.logger.Info("all faces deleted")
	return nil
}

// Reset is the corruption-recovery escape hatch: it discards the engine
// instance, deletes both backing artifacts and rebuilds a fresh lazy
// engine. Irreversible, and idempotent.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.engine.Reset(ctx); err != nil {
		return domain.ErrEngineFailure.WithError(fmt.Errorf("reset engine: %w", err))
	}
	if err := s.engine.Close(); err != nil {
		s.logger.Warn("engine close after reset", slog.Any("error", err))
	}

	eng, err := s.factory(ctx)
	if err != nil {
		return domain.ErrEngineFailure.WithError(fmt.Errorf("rebuild engine: %w", err))
	}
	s.engine = eng

	s.clearLocked()
	s.logger.Warn("identity database reset")
	return nil
}

// Faces lists the enrolled slots in id order.
func (s *Store) Faces() []domain.FaceSlot {
	s.mu.Lock()
	defer s.mu.Unlock()

	faces := make([]domain.FaceSlot, 0, s.enrolled)
	for i := range s.slots {
		if s.slots[i].Enrolled {
			faces = append(faces, s.slots[i])
		}
	}
	return faces
}

func (s *Store) EnrolledCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enrolled
}

func (s *Store) Close() error {
	return s.engine.Close()
}

// clearLocked zeroes the table and removes the metadata artifact;
// callers hold s.mu.
func (s *Store) clearLocked() {
	s.slots = [domain.Capacity]domain.FaceSlot{}
	s.enrolled = 0
	if err := os.Remove(s.metaPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("remove identity metadata", slog.Any("error", err))
	}
}

// persistLocked writes the metadata artifact whole; callers hold s.mu.
// Persistence failure degrades durability, not the in-memory state, so it
// is logged rather than returned.
func (s *Store) persistLocked() {
	if err := writeMeta(s.metaPath, s.enrolled, &s.slots); err != nil {
		s.logger.Error("persist identity metadata",
			slog.Any("error", domain.ErrPersistence.WithError(err)),
		)
	}
}
