package healthrecords

import "context"

type Repository interface {
	// ListActive devuelve los registros activos del paciente, CreatedAt descendente.
	ListActive(ctx context.Context, patientID string, f ListFilter) ([]Record, error)
}
