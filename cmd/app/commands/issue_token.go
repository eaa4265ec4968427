package commands

import (
	"fmt"
	"io"
	"time"

	authService "github.com/allisson/pseudonyms/internal/auth/service"
)

// RunIssueToken signs a bearer token for principalID valid for ttl.
func RunIssueToken(
	tokenService authService.TokenService,
	writer io.Writer,
	principalID int64,
	ttl time.Duration,
	format string,
) error {
	if principalID <= 0 {
		return fmt.Errorf("principal id must be a positive integer")
	}
	if ttl <= 0 {
		return fmt.Errorf("token expiration must be positive")
	}

	token, expiresAt, err := tokenService.Issue(principalID, ttl)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, map[string]interface{}{
			"principal_id": principalID,
			"token":        token,
			"expires_at":   expiresAt.UTC().Format(time.RFC3339),
		})
	}

	_, _ = fmt.Fprintf(writer, "Principal:  %d\n", principalID)
	_, _ = fmt.Fprintf(writer, "Expires At: %s\n", expiresAt.UTC().Format(time.RFC3339))
	_, _ = fmt.Fprintf(writer, "Token:      %s\n", token)
	return nil
}
