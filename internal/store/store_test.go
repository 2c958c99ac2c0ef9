package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doorwatch-io/doorwatch/internal/domain"
	"github.com/doorwatch-io/doorwatch/internal/engine"
)

// fakeEngine scripts the recognition collaborator. Ids are count-derived
// like the real contract: enroll appends, new id = count-1.
type fakeEngine struct {
	regions    []engine.Region
	matches    []engine.Match
	count      int
	detectErr  error
	enrollErr  error
	resetCalls int
	clearCalls int
}

func (f *fakeEngine) Detect(ctx context.Context, image []byte) ([]engine.Region, error) {
	return f.regions, f.detectErr
}

func (f *fakeEngine) Recognize(ctx context.Context, image []byte, regions []engine.Region) ([]engine.Match, error) {
	return f.matches, nil
}

func (f *fakeEngine) Enroll(ctx context.Context, image []byte, regions []engine.Region) error {
	if f.enrollErr != nil {
		return f.enrollErr
	}
	f.count++
	return nil
}

func (f *fakeEngine) DeleteFeature(ctx context.Context, id int) error {
	f.count--
	return nil
}

func (f *fakeEngine) ClearAll(ctx context.Context) error {
	f.clearCalls++
	f.count = 0
	return nil
}

func (f *fakeEngine) FeatureCount() int { return f.count }

func (f *fakeEngine) Reset(ctx context.Context) error {
	f.resetCalls++
	f.count = 0
	return nil
}

func (f *fakeEngine) Close() error { return nil }

func oneFace() []engine.Region {
	return []engine.Region{{X: 0.1, Y: 0.1, Width: 0.8, Height: 0.8, Score: 0.99}}
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func openStore(t *testing.T, eng *fakeEngine) (*Store, string) {
	t.Helper()
	metaPath := filepath.Join(t.TempDir(), "faces.meta")
	factory := func(ctx context.Context) (engine.Engine, error) { return eng, nil }
	s, err := Open(context.Background(), factory, metaPath, testLogger())
	require.NoError(t, err)
	return s, metaPath
}

func TestEnroll_Monotonicity(t *testing.T) {
	eng := &fakeEngine{regions: oneFace()}
	s, _ := openStore(t, eng)
	ctx := context.Background()

	names := []string{"Alice", "Bob", "Carol"}
	for i, name := range names {
		slot, err := s.Enroll(ctx, []byte("frame"), name)
		require.NoError(t, err)
		assert.Equal(t, i, slot.ID)
		assert.Equal(t, name, slot.Name)
		assert.Equal(t, i+1, eng.FeatureCount())
	}
	assert.Equal(t, 3, s.EnrolledCount())
}

func TestEnroll_NoFaceDetected(t *testing.T) {
	eng := &fakeEngine{regions: nil}
	s, _ := openStore(t, eng)

	_, err := s.Enroll(context.Background(), []byte("frame"), "Alice")
	assert.ErrorIs(t, err, domain.ErrNoFaceDetected)
	assert.Equal(t, 0, s.EnrolledCount())
}

func TestEnroll_MultipleFacesUsesFirst(t *testing.T) {
	eng := &fakeEngine{regions: append(oneFace(), engine.Region{X: 0.5})}
	s, _ := openStore(t, eng)

	slot, err := s.Enroll(context.Background(), []byte("frame"), "Alice")
	require.NoError(t, err)
	assert.Equal(t, 0, slot.ID)
}

func TestEnroll_CapacityBound(t *testing.T) {
	// The engine already holds Capacity features; the next id lands
	// beyond the table and the local mirror must stay untouched.
	eng := &fakeEngine{regions: oneFace(), count: domain.Capacity}
	s, _ := openStore(t, eng)

	_, err := s.Enroll(context.Background(), []byte("frame"), "Overflow")
	assert.ErrorIs(t, err, domain.ErrStoreFull)

	for _, f := range s.Faces() {
		assert.NotEqual(t, "Overflow", f.Name)
	}
}

func TestEnroll_TruncatesLongName(t *testing.T) {
	eng := &fakeEngine{regions: oneFace()}
	s, _ := openStore(t, eng)

	long := make([]byte, domain.MaxNameLen+10)
	for i := range long {
		long[i] = 'x'
	}
	slot, err := s.Enroll(context.Background(), []byte("frame"), string(long))
	require.NoError(t, err)
	assert.Len(t, slot.Name, domain.MaxNameLen-1)
}

func TestRecognize(t *testing.T) {
	eng := &fakeEngine{regions: oneFace()}
	s, _ := openStore(t, eng)
	ctx := context.Background()

	_, err := s.Enroll(ctx, []byte("frame"), "Alice")
	require.NoError(t, err)

	t.Run("best match resolves to slot", func(t *testing.T) {
		eng.matches = []engine.Match{{ID: 0, Similarity: 0.97}}
		slot, err := s.Recognize(ctx, []byte("frame"))
		require.NoError(t, err)
		assert.Equal(t, "Alice", slot.Name)
	})

	t.Run("no match is not found", func(t *testing.T) {
		eng.matches = nil
		_, err := s.Recognize(ctx, []byte("frame"))
		assert.ErrorIs(t, err, domain.ErrFaceNotFound)
	})

	t.Run("match without local slot is desync, not a person", func(t *testing.T) {
		eng.matches = []engine.Match{{ID: 7, Similarity: 0.97}}
		_, err := s.Recognize(ctx, []byte("frame"))
		assert.ErrorIs(t, err, domain.ErrStoreDesync)
	})

	t.Run("no regions", func(t *testing.T) {
		eng.regions = nil
		defer func() { eng.regions = oneFace() }()
		_, err := s.Recognize(ctx, []byte("frame"))
		assert.ErrorIs(t, err, domain.ErrNoFaceDetected)
	})
}

func TestDelete(t *testing.T) {
	eng := &fakeEngine{regions: oneFace()}
	s, _ := openStore(t, eng)
	ctx := context.Background()

	_, err := s.Enroll(ctx, []byte("frame"), "Alice")
	require.NoError(t, err)

	t.Run("out of range", func(t *testing.T) {
		assert.ErrorIs(t, s.Delete(ctx, -1), domain.ErrFaceNotFound)
		assert.ErrorIs(t, s.Delete(ctx, domain.Capacity), domain.ErrFaceNotFound)
		assert.Equal(t, 1, s.EnrolledCount())
	})

	t.Run("not enrolled", func(t *testing.T) {
		assert.ErrorIs(t, s.Delete(ctx, 5), domain.ErrFaceNotFound)
	})

	t.Run("enrolled slot", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, 0))
		assert.Equal(t, 0, s.EnrolledCount())
		assert.Empty(t, s.Faces())
	})
}

func TestDeleteAll(t *testing.T) {
	eng := &fakeEngine{regions: oneFace()}
	s, metaPath := openStore(t, eng)
	ctx := context.Background()

	_, err := s.Enroll(ctx, []byte("frame"), "Alice")
	require.NoError(t, err)

	require.NoError(t, s.DeleteAll(ctx))
	assert.Equal(t, 1, eng.clearCalls)
	assert.Equal(t, 0, s.EnrolledCount())

	_, err = os.Stat(metaPath)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReset_Idempotent(t *testing.T) {
	eng := &fakeEngine{regions: oneFace()}
	s, _ := openStore(t, eng)
	ctx := context.Background()

	_, err := s.Enroll(ctx, []byte("frame"), "Alice")
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))
	require.NoError(t, s.Reset(ctx))

	assert.Equal(t, 0, s.EnrolledCount())
	assert.Equal(t, 0, eng.FeatureCount())
	assert.Equal(t, 2, eng.resetCalls)
}

func TestOpen_ReconcilesWithEngineCount(t *testing.T) {
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "faces.meta")

	// Metadata claims five identities; the engine only has three.
	var slots [domain.Capacity]domain.FaceSlot
	for i := 0; i < 5; i++ {
		slots[i] = domain.FaceSlot{ID: i, Name: "person", Enrolled: true, TemplateCount: 1}
	}
	require.NoError(t, writeMeta(metaPath, 5, &slots))

	eng := &fakeEngine{count: 3}
	factory := func(ctx context.Context) (engine.Engine, error) { return eng, nil }
	s, err := Open(context.Background(), factory, metaPath, testLogger())
	require.NoError(t, err)

	assert.Equal(t, 3, s.EnrolledCount())
}

func TestOpen_MarksUnknownSlotsUnnamed(t *testing.T) {
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "faces.meta")

	// Metadata knows one identity; the engine has three features. The
	// two extra slots have no recoverable name and must read as
	// enrolled-but-unnamed rather than stale disk bytes.
	var slots [domain.Capacity]domain.FaceSlot
	slots[0] = domain.FaceSlot{ID: 0, Name: "Alice", Enrolled: true, TemplateCount: 1}
	require.NoError(t, writeMeta(metaPath, 1, &slots))

	eng := &fakeEngine{count: 3}
	factory := func(ctx context.Context) (engine.Engine, error) { return eng, nil }
	s, err := Open(context.Background(), factory, metaPath, testLogger())
	require.NoError(t, err)

	faces := s.Faces()
	require.Len(t, faces, 3)
	assert.Equal(t, "Alice", faces[0].Name)
	assert.Equal(t, "", faces[1].Name)
	assert.Equal(t, "", faces[2].Name)
}

func TestOpen_CorruptMetadataStartsFresh(t *testing.T) {
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "faces.meta")
	require.NoError(t, os.WriteFile(metaPath, []byte("garbage"), 0o644))

	eng := &fakeEngine{}
	factory := func(ctx context.Context) (engine.Engine, error) { return eng, nil }
	s, err := Open(context.Background(), factory, metaPath, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, s.EnrolledCount())
}

func TestOpen_MissingMetadataDropsOrphanFeatures(t *testing.T) {
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "faces.meta")

	// Three feature vectors but no metadata at all. There is no name to
	// attach to any of them, so they are discarded instead of surfacing
	// as enrolled unnamed identities.
	eng := &fakeEngine{count: 3}
	factory := func(ctx context.Context) (engine.Engine, error) { return eng, nil }
	s, err := Open(context.Background(), factory, metaPath, testLogger())
	require.NoError(t, err)

	assert.Equal(t, 0, s.EnrolledCount())
	assert.Empty(t, s.Faces())
	assert.Equal(t, 0, eng.count)
	assert.Equal(t, 1, eng.clearCalls)
}

func TestOpen_CorruptMetadataDropsOrphanFeatures(t *testing.T) {
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "faces.meta")
	require.NoError(t, os.WriteFile(metaPath, []byte("garbage"), 0o644))

	eng := &fakeEngine{count: 2}
	factory := func(ctx context.Context) (engine.Engine, error) { return eng, nil }
	s, err := Open(context.Background(), factory, metaPath, testLogger())
	require.NoError(t, err)

	assert.Equal(t, 0, s.EnrolledCount())
	assert.Equal(t, 0, eng.count)
	assert.Equal(t, 1, eng.clearCalls)
}

func TestMetadata_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "faces.meta")
	ctx := context.Background()

	eng := &fakeEngine{regions: oneFace()}
	factory := func(c context.Context) (engine.Engine, error) { return eng, nil }

	s, err := Open(ctx, factory, metaPath, testLogger())
	require.NoError(t, err)
	_, err = s.Enroll(ctx, []byte("frame-a"), "Alice")
	require.NoError(t, err)
	_, err = s.Enroll(ctx, []byte("frame-b"), "Bob")
	require.NoError(t, err)

	// Reopen against the same engine state.
	reopened, err := Open(ctx, factory, metaPath, testLogger())
	require.NoError(t, err)

	faces := reopened.Faces()
	require.Len(t, faces, 2)
	assert.Equal(t, "Alice", faces[0].Name)
	assert.Equal(t, "Bob", faces[1].Name)
}

func TestMeta_FixedRecordLayout(t *testing.T) {
	metaPath := filepath.Join(t.TempDir(), "faces.meta")

	var slots [domain.Capacity]domain.FaceSlot
	slots[0] = domain.FaceSlot{ID: 0, Name: "Alice", Enrolled: true, TemplateCount: 1}
	require.NoError(t, writeMeta(metaPath, 1, &slots))

	data, err := os.ReadFile(metaPath)
	require.NoError(t, err)

	// int32 count + Capacity fixed-width slot records.
	wantSize := 4 + domain.Capacity*(domain.MaxNameLen+4+1+4)
	assert.Equal(t, wantSize, len(data))
}
