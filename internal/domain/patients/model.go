package patients

import (
	"strings"
	"time"
)

// Profile es la ficha del paciente que lee el subsistema QR.
type Profile struct {
	ID          string
	FirstName   string
	LastName    string
	DateOfBirth time.Time
	BloodType   string // vacío si no se cargó

	CreatedAt time.Time
}

// DisplayName: "Nombre Apellido", sin espacios sobrantes.
func (p Profile) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}
