package app

import (
	"fmt"

	authService "github.com/allisson/pseudonyms/internal/auth/service"
)

// TokenService returns the bearer token service signing with AUTH_SIGNING_KEY.
func (c *Container) TokenService() (authService.TokenService, error) {
	c.tokenServiceInit.Do(func() {
		service, err := authService.NewTokenService([]byte(c.config.AuthSigningKey))
		if err != nil {
			c.setInitError("tokenService", fmt.Errorf("failed to create token service: %w", err))
			return
		}
		c.tokenService = service
	})
	if err := c.initError("tokenService"); err != nil {
		return nil, err
	}
	return c.tokenService, nil
}
