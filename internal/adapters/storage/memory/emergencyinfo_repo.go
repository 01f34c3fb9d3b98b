package memory

import (
	"context"
	"errors"
	"sync"

	"patient-health-qr/internal/domain/emergencyinfo"
)

type EmergencyInfoRepo struct {
	mu        sync.RWMutex
	byPatient map[string]emergencyinfo.Info
}

func NewEmergencyInfoRepo() *EmergencyInfoRepo {
	return &EmergencyInfoRepo{byPatient: make(map[string]emergencyinfo.Info)}
}

func (r *EmergencyInfoRepo) Save(ctx context.Context, info emergencyinfo.Info) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if info.PatientID == "" {
		return errors.New("patient id required")
	}
	r.byPatient[info.PatientID] = info
	return nil
}

func (r *EmergencyInfoRepo) GetByPatient(ctx context.Context, patientID string) (emergencyinfo.Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.byPatient[patientID]
	if !ok {
		return emergencyinfo.Info{}, emergencyinfo.ErrNotFound
	}
	return info, nil
}
