package accessgrants

import "errors"

var (
	ErrInvalidAccessLevel  = errors.New("invalid access level")
	ErrInvalidDuration     = errors.New("expiration must be between 5 minutes and 24 hours")
	ErrInvalidTokenFormat  = errors.New("invalid token format")
	ErrNotFound            = errors.New("not found")
	ErrExpired             = errors.New("qr code has expired")
	ErrAccessLevelMismatch = errors.New("access level mismatch")
	ErrUnauthenticated     = errors.New("unauthenticated")

	// ErrTokenConflict lo devuelve el store cuando el token ya existe.
	ErrTokenConflict = errors.New("token already exists")
)
