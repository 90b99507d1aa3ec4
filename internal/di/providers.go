package di

import (
	"instametrics/internal/providers"
	"instametrics/internal/services"
)

// NewTokenValidator lets the auth middleware verify tokens without
// providers depending on services.
func NewTokenValidator(auth services.AuthServiceInterface) providers.TokenValidator {
	return auth
}
