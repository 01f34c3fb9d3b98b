package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"patient-health-qr/internal/domain/healthrecords"
)

type HealthRecordsRepo struct {
	mu        sync.RWMutex
	byPatient map[string][]healthrecords.Record
}

func NewHealthRecordsRepo() *HealthRecordsRepo {
	return &HealthRecordsRepo{byPatient: make(map[string][]healthrecords.Record)}
}

func (r *HealthRecordsRepo) Save(ctx context.Context, rec healthrecords.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" || rec.PatientID == "" {
		return errors.New("record id and patient id required")
	}
	list := r.byPatient[rec.PatientID]
	for i := range list {
		if list[i].ID == rec.ID {
			list[i] = rec
			return nil
		}
	}
	r.byPatient[rec.PatientID] = append(list, rec)
	return nil
}

func (r *HealthRecordsRepo) ListActive(ctx context.Context, patientID string, f healthrecords.ListFilter) ([]healthrecords.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]healthrecords.Record, 0)
	for _, rec := range r.byPatient[patientID] {
		if rec.IsActive && f.Matches(rec) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
