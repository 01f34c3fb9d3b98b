package patients

import (
	"context"
	"strings"
)

// Directory expone el nombre visible del paciente al handler de QR.
type Directory struct {
	repo Repository
}

func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo}
}

func (d *Directory) DisplayName(ctx context.Context, patientID string) (string, error) {
	p, err := d.repo.GetByID(ctx, strings.TrimSpace(patientID))
	if err != nil {
		return "", err
	}
	return p.DisplayName(), nil
}
