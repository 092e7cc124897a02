package service

import (
	"errors"
	"fmt"

	"github.com/parishkit/livestream-service/internal/domain"
)

var (
	// ErrInvalidArgument is returned for malformed caller input
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState is returned when an OAuth callback carries a state that
	// was never stored, was already consumed, or has expired
	ErrInvalidState = errors.New("invalid oauth state")

	// ErrInvalidCredentials is returned when a credentials object is empty or
	// missing its token fields
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrRefresh is returned when a vendor rejects a token refresh
	ErrRefresh = errors.New("token refresh failed")

	// ErrUnsupportedPlatform is returned for platforms outside the known set
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// MissingConnectionError is returned by the orchestrator when a requested
// destination platform has no connected authorization. It names the platform
// so the caller can prompt the tenant to connect it.
type MissingConnectionError struct {
	Platform domain.Platform
}

func (e *MissingConnectionError) Error() string {
	return fmt.Sprintf("no connected authorization for platform %s", e.Platform)
}
