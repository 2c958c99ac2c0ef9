// Package rekognition backs the engine contract with an AWS Rekognition
// collection. AWS face ids are opaque strings; the appliance contract wants
// small monotone integers, so the engine keeps a ledger file mapping int id
// to AWS face id. The collection and the ledger are the engine's own
// artifacts; the identity store never sees either.
package rekognition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/aws/smithy-go"

	"github.com/doorwatch-io/doorwatch/internal/engine"
)

const (
	errCodeResourceNotFound = "ResourceNotFoundException"
	errCodeResourceExists   = "ResourceAlreadyExistsException"

	// maxImageSize is the Rekognition API limit for image bytes (5MB).
	maxImageSize = 5 * 1024 * 1024
)

type Config struct {
	Region       string
	CollectionID string
	LedgerPath   string
	Threshold    float64
}

// Engine implements engine.Engine against one Rekognition collection.
type Engine struct {
	mu     sync.Mutex
	client *rekognition.Client
	cfg    Config
	faces  []string // index = engine id, value = AWS face id
	logger *slog.Logger
}

var _ engine.Engine = (*Engine)(nil)

// New loads AWS credentials from the default chain, ensures the collection
// exists and loads the id ledger.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Engine, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	e := &Engine{
		client: rekognition.NewFromConfig(awsCfg),
		cfg:    cfg,
		logger: logger,
	}

	if err := e.ensureCollection(ctx); err != nil {
		return nil, err
	}
	if err := e.loadLedger(); err != nil {
		return nil, err
	}

	return e, nil
}

func (e *Engine) ensureCollection(ctx context.Context) error {
	_, err := e.client.CreateCollection(ctx, &rekognition.CreateCollectionInput{
		CollectionId: aws.String(e.cfg.CollectionID),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == errCodeResourceExists {
			return nil
		}
		return fmt.Errorf("create collection %s: %w", e.cfg.CollectionID, err)
	}
	e.logger.Info("rekognition collection created", slog.String("collection", e.cfg.CollectionID))
	return nil
}

func (e *Engine) loadLedger() error {
	data, err := os.ReadFile(e.cfg.LedgerPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read id ledger %s: %w", e.cfg.LedgerPath, err)
	}
	if err := json.Unmarshal(data, &e.faces); err != nil {
		return fmt.Errorf("decode id ledger %s: %w", e.cfg.LedgerPath, err)
	}
	return nil
}

// persistLedger writes the whole ledger; callers hold e.mu.
func (e *Engine) persistLedger() error {
	data, err := json.Marshal(e.faces)
	if err != nil {
		return err
	}
	return os.WriteFile(e.cfg.LedgerPath, data, 0o644)
}

func validateImage(image []byte) error {
	if len(image) == 0 || len(image) > maxImageSize {
		return fmt.Errorf("image size %d out of range", len(image))
	}
	return nil
}

func (e *Engine) Detect(ctx context.Context, image []byte) ([]engine.Region, error) {
	if err := validateImage(image); err != nil {
		return nil, err
	}

	out, err := e.client.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image: &types.Image{Bytes: image},
	})
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}

	regions := make([]engine.Region, 0, len(out.FaceDetails))
	for _, d := range out.FaceDetails {
		if d.BoundingBox == nil {
			continue
		}
		r := engine.Region{
			X:      float64(aws.ToFloat32(d.BoundingBox.Left)),
			Y:      float64(aws.ToFloat32(d.BoundingBox.Top)),
			Width:  float64(aws.ToFloat32(d.BoundingBox.Width)),
			Height: float64(aws.ToFloat32(d.BoundingBox.Height)),
			Score:  float64(aws.ToFloat32(d.Confidence)) / 100,
		}
		regions = append(regions, r)
	}
	return regions, nil
}

func (e *Engine) Recognize(ctx context.Context, image []byte, regions []engine.Region) ([]engine.Match, error) {
	if len(regions) == 0 {
		return nil, nil
	}
	if err := validateImage(image); err != nil {
		return nil, err
	}

	// SearchFacesByImage uses the largest detected face in the frame,
	// which matches the first-region convention of this contract.
	out, err := e.client.SearchFacesByImage(ctx, &rekognition.SearchFacesByImageInput{
		CollectionId:       aws.String(e.cfg.CollectionID),
		Image:              &types.Image{Bytes: image},
		FaceMatchThreshold: aws.Float32(float32(e.cfg.Threshold * 100)),
		MaxFaces:           aws.Int32(5),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == errCodeResourceNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("search faces: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var matches []engine.Match
	for _, m := range out.FaceMatches {
		if m.Face == nil || m.Face.FaceId == nil {
			continue
		}
		id := e.idForLocked(aws.ToString(m.Face.FaceId))
		if id < 0 {
			// Face exists in the collection but not in the ledger;
			// surfacing an unknown id would fabricate identity.
			continue
		}
		matches = append(matches, engine.Match{
			ID:         id,
			Similarity: float64(aws.ToFloat32(m.Similarity)) / 100,
		})
	}
	return matches, nil
}

// idForLocked maps an AWS face id to its engine id; callers hold e.mu.
func (e *Engine) idForLocked(awsID string) int {
	for i, f := range e.faces {
		if f == awsID {
			return i
		}
	}
	return -1
}

func (e *Engine) Enroll(ctx context.Context, image []byte, regions []engine.Region) error {
	if len(regions) == 0 {
		return errors.New("enroll: no face region")
	}
	if err := validateImage(image); err != nil {
		return err
	}

	out, err := e.client.IndexFaces(ctx, &rekognition.IndexFacesInput{
		CollectionId:  aws.String(e.cfg.CollectionID),
		Image:         &types.Image{Bytes: image},
		MaxFaces:      aws.Int32(1),
		QualityFilter: types.QualityFilterAuto,
	})
	if err != nil {
		return fmt.Errorf("index face: %w", err)
	}
	if len(out.FaceRecords) == 0 || out.FaceRecords[0].Face == nil {
		return errors.New("index face: no face indexed")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.faces = append(e.faces, aws.ToString(out.FaceRecords[0].Face.FaceId))
	if err := e.persistLedger(); err != nil {
		e.faces = e.faces[:len(e.faces)-1]
		return fmt.Errorf("persist id ledger: %w", err)
	}
	return nil
}

func (e *Engine) DeleteFeature(ctx context.Context, id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id < 0 || id >= len(e.faces) {
		return fmt.Errorf("delete feature %d: not found", id)
	}

	awsID := e.faces[id]
	_, err := e.client.DeleteFaces(ctx, &rekognition.DeleteFacesInput{
		CollectionId: aws.String(e.cfg.CollectionID),
		FaceIds:      []string{awsID},
	})
	if err != nil {
		return fmt.Errorf("delete face %s: %w", awsID, err)
	}

	e.faces = append(e.faces[:id], e.faces[id+1:]...)
	return e.persistLedger()
}

func (e *Engine) ClearAll(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.faces) > 0 {
		_, err := e.client.DeleteFaces(ctx, &rekognition.DeleteFacesInput{
			CollectionId: aws.String(e.cfg.CollectionID),
			FaceIds:      e.faces,
		})
		if err != nil {
			return fmt.Errorf("clear collection: %w", err)
		}
	}

	e.faces = nil
	if err := os.Remove(e.cfg.LedgerPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove id ledger: %w", err)
	}
	return nil
}

func (e *Engine) FeatureCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.faces)
}

func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, err := e.client.DeleteCollection(ctx, &rekognition.DeleteCollectionInput{
		CollectionId: aws.String(e.cfg.CollectionID),
	})
	if err != nil {
		var apiErr smithy.APIError
		if !errors.As(err, &apiErr) || apiErr.ErrorCode() != errCodeResourceNotFound {
			return fmt.Errorf("delete collection: %w", err)
		}
	}

	e.faces = nil
	if err := os.Remove(e.cfg.LedgerPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove id ledger: %w", err)
	}

	if err := e.ensureCollection(ctx); err != nil {
		return err
	}
	e.logger.Warn("rekognition collection reset", slog.String("collection", e.cfg.CollectionID))
	return nil
}

func (e *Engine) Close() error {
	return nil
}
