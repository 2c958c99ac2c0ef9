// Package embedded is a local recognition engine for development, testing
// and small deployments. Embeddings are derived deterministically from the
// image bytes, so the same picture always recognizes itself; it makes no
// claim to real-world accuracy.
package embedded

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"

	"github.com/doorwatch-io/doorwatch/internal/engine"
)

const embeddingDimension = 128

var jpegPrefix = []byte{0xFF, 0xD8, 0xFF}

type feature struct {
	ID     int       `json:"id"`
	Vector []float64 `json:"vector"`
}

// Engine implements engine.Engine with a JSON feature artifact on local
// storage. The artifact is created lazily on first enrollment; when it
// exists at construction time it is loaded immediately.
type Engine struct {
	mu        sync.Mutex
	path      string
	threshold float64
	features  []feature
	logger    *slog.Logger
}

var _ engine.Engine = (*Engine)(nil)

// New opens or lazily creates the feature artifact at path.
func New(path string, threshold float64, logger *slog.Logger) (*Engine, error) {
	e := &Engine{
		path:      path,
		threshold: threshold,
		logger:    logger,
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Fresh engine; artifact appears on first enrollment.
	case err != nil:
		return nil, fmt.Errorf("open feature db %s: %w", path, err)
	default:
		if err := json.Unmarshal(data, &e.features); err != nil {
			return nil, fmt.Errorf("decode feature db %s: %w", path, err)
		}
		logger.Info("feature database loaded",
			slog.String("path", path),
			slog.Int("features", len(e.features)),
		)
	}

	return e, nil
}

func (e *Engine) Detect(ctx context.Context, image []byte) ([]engine.Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// A face is "detected" when the frame is a plausible JPEG. Real
	// detection lives behind this same contract in production engines.
	if len(image) < 100 || !bytes.HasPrefix(image, jpegPrefix) {
		return nil, nil
	}

	return []engine.Region{{X: 0.1, Y: 0.1, Width: 0.8, Height: 0.8, Score: 0.99}}, nil
}

func (e *Engine) Recognize(ctx context.Context, image []byte, regions []engine.Region) ([]engine.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		return nil, nil
	}

	probe := embed(image)

	e.mu.Lock()
	defer e.mu.Unlock()

	var matches []engine.Match
	for _, f := range e.features {
		sim := cosineSimilarity(probe, f.Vector)
		if sim >= e.threshold {
			matches = append(matches, engine.Match{ID: f.ID, Similarity: sim})
		}
	}

	// Rank best-first. The slice is tiny; insertion-style sort is fine.
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].Similarity > matches[j-1].Similarity; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}

	return matches, nil
}

func (e *Engine) Enroll(ctx context.Context, image []byte, regions []engine.Region) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(regions) == 0 {
		return errors.New("enroll: no face region")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Ids are count-derived per the engine contract: new id equals the
	// feature count after enrollment minus one. After deletions this
	// can collide with a surviving id; the store treats the resulting
	// lookup misses as desync rather than guessing.
	f := feature{ID: len(e.features), Vector: embed(image)}
	e.features = append(e.features, f)

	if err := e.persist(); err != nil {
		e.features = e.features[:len(e.features)-1]
		return fmt.Errorf("persist feature db: %w", err)
	}
	return nil
}

func (e *Engine) DeleteFeature(ctx context.Context, id int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i, f := range e.features {
		if f.ID == id {
			e.features = append(e.features[:i], e.features[i+1:]...)
			return e.persist()
		}
	}
	return fmt.Errorf("delete feature %d: not found", id)
}

func (e *Engine) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.features = nil
	if err := os.Remove(e.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove feature db: %w", err)
	}
	return nil
}

func (e *Engine) FeatureCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.features)
}

func (e *Engine) Reset(ctx context.Context) error {
	if err := e.ClearAll(ctx); err != nil {
		return err
	}
	e.logger.Warn("feature database reset", slog.String("path", e.path))
	return nil
}

func (e *Engine) Close() error {
	return nil
}

// persist writes the whole artifact; callers hold e.mu.
func (e *Engine) persist() error {
	data, err := json.Marshal(e.features)
	if err != nil {
		return err
	}
	return os.WriteFile(e.path, data, 0o644)
}

// embed derives a normalized deterministic embedding from the image hash.
func embed(image []byte) []float64 {
	hash := sha256.Sum256(image)
	vec := make([]float64, embeddingDimension)
	for i := range vec {
		vec[i] = (float64(hash[i%len(hash)])/255.0)*2 - 1
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
