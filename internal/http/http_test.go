package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/allisson/fieldcrypt/internal/metrics"
)

// TestMain sets Gin to test mode for all tests in this package.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func get(handler http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthHandler(t *testing.T) {
	server := NewServer(nil, "localhost", 8080, discardLogger(), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	server.healthHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestReadinessHandler(t *testing.T) {
	keyReady := false
	checks := map[string]ReadinessCheck{
		"database": func(ctx context.Context) error { return nil },
		"encryption_key": func(ctx context.Context) error {
			if !keyReady {
				return errors.New("key not initialized")
			}
			return nil
		},
	}
	server := NewServer(checks, "localhost", 8080, discardLogger(), nil)

	t.Run("NotReadyUntilKeyInitialized", func(t *testing.T) {
		w := get(server.GetHandler(), "/ready")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		response := decode(t, w)
		assert.Equal(t, "not_ready", response["status"])
		assert.Equal(t, map[string]any{"database": "ok", "encryption_key": "error"}, response["components"])
	})

	t.Run("Ready", func(t *testing.T) {
		keyReady = true
		w := get(server.GetHandler(), "/ready")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ready", decode(t, w)["status"])
	})

	t.Run("NotReadyWhileShuttingDown", func(t *testing.T) {
		server.shuttingDown.Store(true)
		defer server.shuttingDown.Store(false)

		w := get(server.GetHandler(), "/ready")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "shutting_down", decode(t, w)["reason"])
	})
}

func TestServer_NotFound(t *testing.T) {
	server := NewServer(nil, "localhost", 8080, discardLogger(), nil)

	assert.Equal(t, http.StatusNotFound, get(server.GetHandler(), "/nonexistent").Code)
	assert.Equal(t, http.StatusNotFound, get(server.GetHandler(), "/metrics").Code)
}

func TestServer_RequestIDHeader(t *testing.T) {
	server := NewServer(nil, "localhost", 8080, discardLogger(), nil)

	w := get(server.GetHandler(), "/health")

	requestID := w.Header().Get("X-Request-Id")
	parsed, err := uuid.Parse(requestID)
	require.NoError(t, err, "X-Request-Id should be a valid UUID")
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestServer_RecordsRequestMetrics(t *testing.T) {
	provider, err := metrics.NewProvider("test_app")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	server := NewServer(nil, "localhost", 8080, discardLogger(), provider)
	require.Equal(t, http.StatusOK, get(server.GetHandler(), "/health").Code)

	metricsServer := NewMetricsServer("localhost", 8081, discardLogger(), provider)
	w := get(metricsServer.GetHandler(), "/metrics")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_app_http_requests_total")
	assert.Contains(t, w.Body.String(), `path="/health"`)
}

func TestCustomLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	router.Use(requestid.New(requestid.WithGenerator(func() string { return "req-1" })))
	router.Use(CustomLoggerMiddleware(logger))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "test"})
	})

	w := get(router, "/test")

	assert.Equal(t, http.StatusOK, w.Code)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "http request", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "/test", entry["path"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.EqualValues(t, http.StatusOK, entry["status"])
}

func TestCustomLoggerMiddleware_ServerErrorLoggedAsError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CustomLoggerMiddleware(logger))
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := get(router, "/panic")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}

func TestServer_ShutdownGracefully(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	server := NewServer(nil, "127.0.0.1", 0, discardLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	require.NoError(t, server.Shutdown(shutdownCtx))

	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.True(t, server.shuttingDown.Load())
}

func TestMetricsServer_Endpoints(t *testing.T) {
	provider, err := metrics.NewProvider("test_app")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	metricsServer := NewMetricsServer("localhost", 8081, discardLogger(), provider)
	require.NotNil(t, metricsServer)

	w := get(metricsServer.GetHandler(), "/metrics")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}
