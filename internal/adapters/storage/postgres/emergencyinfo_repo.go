package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"patient-health-qr/internal/domain/emergencyinfo"
)

type EmergencyInfoRepo struct {
	db *sql.DB
}

func NewEmergencyInfoRepo(db *sql.DB) *EmergencyInfoRepo {
	return &EmergencyInfoRepo{db: db}
}

// GetByPatient lee las listas como texto crudo; el parseo lo hace el dominio.
func (r *EmergencyInfoRepo) GetByPatient(ctx context.Context, patientID string) (emergencyinfo.Info, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return emergencyinfo.Info{}, emergencyinfo.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			patient_id,
			emergency_contact_name, emergency_contact_phone,
			critical_allergies, chronic_conditions, current_medications,
			blood_type, updated_at
		FROM emergency_info
		WHERE patient_id = $1
	`, patientID)

	var (
		info                               emergencyinfo.Info
		contactName, contactPhone, blood   sql.NullString
		allergies, conditions, medications sql.NullString
	)
	if err := row.Scan(
		&info.PatientID,
		&contactName,
		&contactPhone,
		&allergies,
		&conditions,
		&medications,
		&blood,
		&info.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return emergencyinfo.Info{}, emergencyinfo.ErrNotFound
		}
		return emergencyinfo.Info{}, fmt.Errorf("get emergency info: %w", err)
	}

	info.ContactName = contactName.String
	info.ContactPhone = contactPhone.String
	info.CriticalAllergies = allergies.String
	info.ChronicConditions = conditions.String
	info.CurrentMedications = medications.String
	info.BloodType = blood.String
	return info, nil
}
