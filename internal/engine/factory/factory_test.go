package factory

import (
	"context"
	"log/slog"
	"testing"

	"github.com/doorwatch-io/doorwatch/internal/config"
	"github.com/doorwatch-io/doorwatch/internal/engine/embedded"
)

func TestNew_Embedded(t *testing.T) {
	tests := []struct {
		name       string
		engineType string
	}{
		{"explicit embedded engine", "embedded"},
		{"empty type defaults to embedded", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				EngineType:     tt.engineType,
				DataDir:        t.TempDir(),
				MatchThreshold: 0.8,
			}

			build, err := New(cfg, slog.New(slog.DiscardHandler))
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			eng, err := build(context.Background())
			if err != nil {
				t.Fatalf("factory error = %v", err)
			}

			if _, ok := eng.(*embedded.Engine); !ok {
				t.Errorf("factory returned type %T, want *embedded.Engine", eng)
			}
		})
	}
}

func TestNew_UnknownType(t *testing.T) {
	cfg := &config.Config{EngineType: "frobnicator"}

	if _, err := New(cfg, slog.New(slog.DiscardHandler)); err == nil {
		t.Fatal("New() expected error for unknown engine type")
	}
}
