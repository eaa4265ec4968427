package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	authDomain "github.com/allisson/pseudonyms/internal/auth/domain"
	authHTTP "github.com/allisson/pseudonyms/internal/auth/http"
)

const (
	ownerID    int64 = 42
	strangerID int64 = 99
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createTestContext creates a test Gin context authenticated as principalID.
// A principalID of zero leaves the request unauthenticated.
func createTestContext(
	method, path string,
	body interface{},
	principalID int64,
) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var bodyReader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		bodyReader = bytes.NewReader([]byte(b))
	default:
		bodyBytes, _ := json.Marshal(b)
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	if principalID != 0 {
		req = req.WithContext(authHTTP.WithPrincipal(req.Context(), &authDomain.Principal{ID: principalID}))
	}
	c.Request = req

	return c, w
}
