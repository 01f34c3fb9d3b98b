package accessgrants

import "time"

// ViewerInfo es la metadata de quien escaneó el QR.
type ViewerInfo struct {
	IP        string
	UserAgent string
	ViewedAt  time.Time
}

// Grant es un permiso tokenizado para ver un nivel de datos de un paciente hasta ExpiresAt.
// Token, OwnerID y AccessLevel no cambian nunca; revocar = mover ExpiresAt al pasado.
type Grant struct {
	ID      string
	OwnerID string // paciente dueño de los datos

	Token       string
	AccessLevel AccessLevel

	IssuedAt  time.Time
	ExpiresAt time.Time

	// Auditoría resumida: conteo + última vista.
	ViewCount    int
	LastViewedAt *time.Time
	LastViewer   *ViewerInfo
}

// ActiveAt: un grant con ExpiresAt <= now es terminal.
func (g Grant) ActiveAt(now time.Time) bool {
	return g.ExpiresAt.After(now)
}

func (g Grant) Viewed() bool {
	return g.ViewCount > 0 || g.LastViewedAt != nil
}
