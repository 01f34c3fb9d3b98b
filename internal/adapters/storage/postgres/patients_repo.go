package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"patient-health-qr/internal/domain/patients"
)

type PatientsRepo struct {
	db *sql.DB
}

func NewPatientsRepo(db *sql.DB) *PatientsRepo {
	return &PatientsRepo{db: db}
}

func (r *PatientsRepo) GetByID(ctx context.Context, id string) (patients.Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return patients.Profile{}, patients.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, date_of_birth, blood_type, created_at
		FROM patients
		WHERE id = $1
	`, id)

	var p patients.Profile
	var blood sql.NullString
	if err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.DateOfBirth, &blood, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return patients.Profile{}, patients.ErrNotFound
		}
		return patients.Profile{}, fmt.Errorf("get patient: %w", err)
	}
	p.BloodType = blood.String
	return p, nil
}
