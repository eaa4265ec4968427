package http

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	authHTTP "github.com/allisson/pseudonyms/internal/auth/http"
	apperrors "github.com/allisson/pseudonyms/internal/errors"
)

// requesterID returns the authenticated principal id set by AuthenticationMiddleware.
func requesterID(c *gin.Context) (int64, error) {
	principal, ok := authHTTP.GetPrincipal(c.Request.Context())
	if !ok {
		return 0, apperrors.ErrUnauthorized
	}
	return principal.ID, nil
}

// int64Param parses a positive integer path parameter.
func int64Param(c *gin.Context, name string) (int64, error) {
	value, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("invalid %s parameter: must be a positive integer", name)
	}
	return value, nil
}

// pseudonymParam returns the member pseudonym from the URL.
func pseudonymParam(c *gin.Context) (string, error) {
	pseudonym := strings.TrimSpace(c.Param("pseudonym"))
	if pseudonym == "" {
		return "", fmt.Errorf("pseudonym cannot be empty")
	}
	return pseudonym, nil
}
