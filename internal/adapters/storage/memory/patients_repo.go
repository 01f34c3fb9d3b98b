package memory

import (
	"context"
	"errors"
	"sync"

	"patient-health-qr/internal/domain/patients"
)

type PatientsRepo struct {
	mu   sync.RWMutex
	byID map[string]patients.Profile
}

func NewPatientsRepo() *PatientsRepo {
	return &PatientsRepo{byID: make(map[string]patients.Profile)}
}

// Save crea o reemplaza el perfil (seed de dev y tests).
func (r *PatientsRepo) Save(ctx context.Context, p patients.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		return errors.New("patient id required")
	}
	r.byID[p.ID] = p
	return nil
}

func (r *PatientsRepo) GetByID(ctx context.Context, id string) (patients.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return patients.Profile{}, patients.ErrNotFound
	}
	return p, nil
}
