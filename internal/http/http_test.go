package http

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authService "github.com/allisson/pseudonyms/internal/auth/service"
	"github.com/allisson/pseudonyms/internal/config"
	"github.com/allisson/pseudonyms/internal/metrics"
	pseudonymDomain "github.com/allisson/pseudonyms/internal/pseudonym/domain"
	pseudonymHTTP "github.com/allisson/pseudonyms/internal/pseudonym/http"
	"github.com/allisson/pseudonyms/internal/pseudonym/usecase/mocks"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testRouter struct {
	server       *Server
	tokenService authService.TokenService
	pseudonyms   *mocks.MockPseudonymUseCase
	migrations   *mocks.MockMigrationUseCase
}

// newTestRouter builds a Server with the full router, rate limiting on, and mocked use
// cases. db may be nil.
func newTestRouter(t *testing.T, db *sql.DB) *testRouter {
	t.Helper()

	tokenService, err := authService.NewTokenService([]byte(strings.Repeat("k", authService.MinSigningKeyLength)))
	require.NoError(t, err)

	cfg := &config.Config{LogLevel: "error", RateLimitEnabled: true, RateLimitRequestsPerSec: 100, RateLimitBurst: 100}
	logger := discardLogger()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r := &testRouter{
		tokenService: tokenService,
		pseudonyms:   &mocks.MockPseudonymUseCase{},
		migrations:   &mocks.MockMigrationUseCase{},
	}
	r.server = NewServer(db, "localhost", 18080, logger)
	r.server.SetupRouter(
		ctx,
		cfg,
		tokenService,
		pseudonymHTTP.NewGroupHandler(r.pseudonyms, r.migrations, logger),
		pseudonymHTTP.NewPseudonymHandler(r.pseudonyms, logger),
		nil,
	)
	return r
}

// do sends a request, authenticated as principalID unless it is zero.
func (r *testRouter) do(t *testing.T, method, path string, principalID int64) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if principalID != 0 {
		token, _, err := r.tokenService.Issue(principalID, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.server.GetHandler().ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	r := newTestRouter(t, nil)

	w := r.do(t, http.MethodGet, "/health", 0)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestServer_Readiness(t *testing.T) {
	t.Run("no database", func(t *testing.T) {
		r := newTestRouter(t, nil)

		w := r.do(t, http.MethodGet, "/ready", 0)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"status":"not_ready","components":{"database":"error"}}`, w.Body.String())
	})

	t.Run("database reachable", func(t *testing.T) {
		db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		dbMock.ExpectPing()

		r := newTestRouter(t, db)
		w := r.do(t, http.MethodGet, "/ready", 0)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ready","components":{"database":"ok"}}`, w.Body.String())
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("ping fails", func(t *testing.T) {
		db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		dbMock.ExpectPing().WillReturnError(errors.New("connection refused"))

		r := newTestRouter(t, db)
		w := r.do(t, http.MethodGet, "/ready", 0)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})
}

func TestServer_Routes(t *testing.T) {
	r := newTestRouter(t, nil)
	defer r.pseudonyms.AssertExpectations(t)

	t.Run("v1 requires a token", func(t *testing.T) {
		for _, path := range []string{
			"/v1/groups/7/pseudonyms",
			"/v1/principals/42/master-key",
		} {
			w := r.do(t, http.MethodGet, path, 0)
			assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		}
	})

	t.Run("list pseudonyms", func(t *testing.T) {
		r.pseudonyms.On("ListPseudonyms", mock.Anything, int64(42), int64(7)).
			Return([]*pseudonymDomain.PseudonymView{}, nil).
			Once()

		w := r.do(t, http.MethodGet, "/v1/groups/7/pseudonyms", 42)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":[]}`, w.Body.String())
	})

	t.Run("unknown route", func(t *testing.T) {
		w := r.do(t, http.MethodGet, "/nonexistent", 0)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("metrics are not served on the api port", func(t *testing.T) {
		w := r.do(t, http.MethodGet, "/metrics", 0)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestServer_RequestID(t *testing.T) {
	r := newTestRouter(t, nil)

	t.Run("generated as uuid v7", func(t *testing.T) {
		w := r.do(t, http.MethodGet, "/health", 0)

		id, err := uuid.Parse(w.Header().Get("X-Request-Id"))
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), id.Version())
	})

	t.Run("propagated from the caller", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-Id", "caller-supplied")
		w := httptest.NewRecorder()
		r.server.GetHandler().ServeHTTP(w, req)

		assert.Equal(t, "caller-supplied", w.Header().Get("X-Request-Id"))
	})
}

func TestCustomLoggerMiddleware(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	router := gin.New()
	router.Use(CustomLoggerMiddleware(logger))
	router.Use(gin.Recovery())
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/ok?page=1", http.StatusOK, `level=INFO msg="http request"`},
		{"/missing", http.StatusNotFound, `level=WARN msg="http request"`},
		{"/panic", http.StatusInternalServerError, `level=ERROR msg="http request"`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			logs.Reset()
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, logs.String(), tt.want)
		})
	}

	logs.Reset()
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok?page=1", nil))
	assert.Contains(t, logs.String(), `query="page=1"`)
}

func TestServer_StartWithoutRouter(t *testing.T) {
	server := NewServer(nil, "localhost", 0, discardLogger())
	assert.EqualError(t, server.Start(context.Background()), "router not configured")
}

func TestServer_ShutdownGracefully(t *testing.T) {
	r := newTestRouter(t, nil)
	r.server.server.Addr = "127.0.0.1:0"

	errChan := make(chan error, 1)
	go func() {
		errChan <- r.server.Start(context.Background())
	}()

	time.Sleep(100 * time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.server.Shutdown(shutdownCtx))

	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestMetricsServer_Endpoints(t *testing.T) {
	provider, err := metrics.NewProvider("test_app")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	metricsServer := NewMetricsServer("localhost", 8081, discardLogger(), provider)
	require.NotNil(t, metricsServer)

	w := httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")

	w = httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/groups", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
