// Package factory builds recognition engines from configuration.
package factory

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/doorwatch-io/doorwatch/internal/config"
	"github.com/doorwatch-io/doorwatch/internal/engine"
	"github.com/doorwatch-io/doorwatch/internal/engine/embedded"
	"github.com/doorwatch-io/doorwatch/internal/engine/rekognition"
)

// Type defines supported recognition engine types
type Type string

const (
	// TypeEmbedded is the local deterministic engine (dev/test/small sites)
	TypeEmbedded Type = "embedded"
	// TypeRekognition is the AWS Rekognition engine (cloud, for prod)
	TypeRekognition Type = "rekognition"
)

// New returns an engine factory based on configuration. The identity store
// holds the factory so ResetDatabase can discard and re-create the engine.
//
// Environment variables:
//   - ENGINE_TYPE: "embedded" or "rekognition" (default: "embedded")
//   - MATCH_THRESHOLD: similarity acceptance threshold (default: 0.8)
//   - AWS_REGION, REKOGNITION_COLLECTION: Rekognition engine only; AWS
//     credentials come from the SDK default credential chain
func New(cfg *config.Config, logger *slog.Logger) (engine.Factory, error) {
	switch Type(cfg.EngineType) {
	case TypeRekognition:
		rekogCfg := rekognition.Config{
			Region:       cfg.AWSRegion,
			CollectionID: cfg.CollectionID,
			LedgerPath:   filepath.Join(cfg.DataDir, "rekognition.ledger"),
			Threshold:    cfg.MatchThreshold,
		}
		return func(ctx context.Context) (engine.Engine, error) {
			return rekognition.New(ctx, rekogCfg, logger)
		}, nil

	case TypeEmbedded, "":
		path := filepath.Join(cfg.DataDir, "faces.db")
		threshold := cfg.MatchThreshold
		return func(ctx context.Context) (engine.Engine, error) {
			return embedded.New(path, threshold, logger)
		}, nil

	default:
		return nil, fmt.Errorf("unknown engine type: %s (supported: %s, %s)",
			cfg.EngineType, TypeEmbedded, TypeRekognition)
	}
}
