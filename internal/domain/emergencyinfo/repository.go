package emergencyinfo

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("emergency info not found")

type Repository interface {
	// GetByPatient devuelve ErrNotFound si el paciente nunca cargó su perfil de emergencia.
	GetByPatient(ctx context.Context, patientID string) (Info, error)
}
