package api

import (
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doorwatch-io/doorwatch/internal/api/handler"
)

func TestRouter_BodyLimitMatchesUploadBound(t *testing.T) {
	r := NewRouter(slog.New(slog.DiscardHandler), nil)

	// fiber's default 4MiB limit would reject large enrollments before
	// the handler's own size check runs.
	assert.Equal(t, handler.MaxUploadSize, r.App().Config().BodyLimit)
}

func TestRouter_HealthWithoutDependencies(t *testing.T) {
	r := NewRouter(slog.New(slog.DiscardHandler), nil)
	r.Setup()

	resp, err := r.App().Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
