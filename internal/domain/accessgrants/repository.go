package accessgrants

import (
	"context"
	"time"
)

// Repository es el AccessGrantStore. Las implementaciones devuelven ErrNotFound,
// ErrTokenConflict y ErrExpired (RecordView) para que el servicio los reconozca con errors.Is.
type Repository interface {
	Create(ctx context.Context, g Grant) error
	Update(ctx context.Context, g Grant) error
	GetByID(ctx context.Context, id string) (Grant, error)
	GetByToken(ctx context.Context, token string) (Grant, error)
	ListActiveByOwner(ctx context.Context, ownerID string, now time.Time) ([]Grant, error)

	// RecordView suma una vista sólo si el grant sigue activo en now (chequeo y escritura atómicos).
	RecordView(ctx context.Context, id string, v ViewerInfo, now time.Time) (Grant, error)
}
