package auth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

// Identity es lo único que el subsistema QR sabe del usuario autenticado:
// el servicio de identidad upstream es la fuente de verdad y se confía opacamente.
type Identity struct {
	PatientID string
	Email     string
	SessionID string
	ExpiresAt time.Time
}

// IdentityVerifier valida un bearer token del paciente y devuelve su identidad.
type IdentityVerifier interface {
	Verify(ctx context.Context, bearer string) (Identity, error)
}
