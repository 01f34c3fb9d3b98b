package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"patient-health-qr/internal/domain/healthrecords"
)

type HealthRecordsRepo struct {
	db *sql.DB
}

func NewHealthRecordsRepo(db *sql.DB) *HealthRecordsRepo {
	return &HealthRecordsRepo{db: db}
}

func (r *HealthRecordsRepo) ListActive(ctx context.Context, patientID string, f healthrecords.ListFilter) ([]healthrecords.Record, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return []healthrecords.Record{}, nil
	}

	query, args := buildListActiveQuery(patientID, f)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list health records: %w", err)
	}
	defer rows.Close()

	out := make([]healthrecords.Record, 0)
	for rows.Next() {
		var rec healthrecords.Record
		var recorded sql.NullTime
		if err := rows.Scan(
			&rec.ID,
			&rec.PatientID,
			&rec.Title,
			&rec.Category,
			&rec.Content,
			&recorded,
			&rec.IsActive,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan health record: %w", err)
		}
		rec.DateRecorded = fromNullTime(recorded)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func buildListActiveQuery(patientID string, f healthrecords.ListFilter) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, patient_id, title, category, content, date_recorded, is_active, created_at
		FROM health_records
		WHERE patient_id = $1
		  AND is_active = TRUE`)
	args := []any{patientID}

	if f.CreatedFrom != nil {
		args = append(args, *f.CreatedFrom)
		fmt.Fprintf(&sb, "\n\t\t  AND created_at >= $%d", len(args))
	}
	if len(f.Categories) > 0 {
		args = append(args, f.Categories)
		fmt.Fprintf(&sb, "\n\t\t  AND category = ANY($%d)", len(args))
	}
	sb.WriteString("\n\t\tORDER BY created_at DESC, id DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&sb, "\n\t\tLIMIT $%d", len(args))
	}
	return sb.String(), args
}
