package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"patient-health-qr/internal/domain/accessgrants"
)

type AccessGrantsRepo struct {
	db *sql.DB
}

func NewAccessGrantsRepo(db *sql.DB) *AccessGrantsRepo {
	return &AccessGrantsRepo{db: db}
}

const grantColumns = `
	id, patient_id, token, access_level,
	created_at, expires_at,
	view_count, viewed_at, viewer_ip, viewer_user_agent
`

func (r *AccessGrantsRepo) Create(ctx context.Context, g accessgrants.Grant) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO qr_access (
			id, patient_id, token, access_level,
			created_at, expires_at, view_count
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		g.ID,
		g.OwnerID,
		g.Token,
		string(g.AccessLevel),
		g.IssuedAt,
		g.ExpiresAt,
		g.ViewCount,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return accessgrants.ErrTokenConflict
		}
		return fmt.Errorf("insert qr_access: %w", err)
	}
	return nil
}

// Update sólo mueve expires_at (revocación).
func (r *AccessGrantsRepo) Update(ctx context.Context, g accessgrants.Grant) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE qr_access
		SET expires_at = $2
		WHERE id = $1
	`, g.ID, g.ExpiresAt)
	if err != nil {
		return fmt.Errorf("update qr_access: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return accessgrants.ErrNotFound
	}
	return nil
}

func (r *AccessGrantsRepo) GetByID(ctx context.Context, id string) (accessgrants.Grant, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return accessgrants.Grant{}, accessgrants.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+grantColumns+` FROM qr_access WHERE id = $1`, id)
	return scanGrantRow(row)
}

func (r *AccessGrantsRepo) GetByToken(ctx context.Context, token string) (accessgrants.Grant, error) {
	if token == "" {
		return accessgrants.Grant{}, accessgrants.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+grantColumns+` FROM qr_access WHERE token = $1`, token)
	return scanGrantRow(row)
}

func (r *AccessGrantsRepo) ListActiveByOwner(ctx context.Context, ownerID string, now time.Time) ([]accessgrants.Grant, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return []accessgrants.Grant{}, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+grantColumns+`
		FROM qr_access
		WHERE patient_id = $1
		  AND expires_at > $2
		ORDER BY created_at DESC, id DESC
	`, ownerID, now)
	if err != nil {
		return nil, fmt.Errorf("list qr_access: %w", err)
	}
	defer rows.Close()

	out := make([]accessgrants.Grant, 0)
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// RecordView es un único UPDATE condicional: si un revoke se comprometió antes,
// no matchea ninguna fila y se distingue expirado de inexistente.
func (r *AccessGrantsRepo) RecordView(ctx context.Context, id string, v accessgrants.ViewerInfo, now time.Time) (accessgrants.Grant, error) {
	viewedAt := v.ViewedAt
	if viewedAt.IsZero() {
		viewedAt = now
	}

	row := r.db.QueryRowContext(ctx, `
		UPDATE qr_access
		SET view_count = view_count + 1,
			viewed_at = $3,
			viewer_ip = $4,
			viewer_user_agent = $5
		WHERE id = $1
		  AND expires_at > $2
		RETURNING `+grantColumns,
		id, now, viewedAt, v.IP, v.UserAgent,
	)

	g, err := scanGrantRow(row)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, accessgrants.ErrNotFound) {
		return accessgrants.Grant{}, err
	}

	// Sin fila: o no existe o ya expiró.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return accessgrants.Grant{}, getErr
	}
	return accessgrants.Grant{}, accessgrants.ErrExpired
}

func scanGrantRow(row scanner) (accessgrants.Grant, error) {
	g, err := scanGrant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return accessgrants.Grant{}, accessgrants.ErrNotFound
	}
	return g, err
}

func scanGrant(s scanner) (accessgrants.Grant, error) {
	var (
		g        accessgrants.Grant
		level    string
		viewedAt sql.NullTime
		viewerIP sql.NullString
		viewerUA sql.NullString
	)
	if err := s.Scan(
		&g.ID,
		&g.OwnerID,
		&g.Token,
		&level,
		&g.IssuedAt,
		&g.ExpiresAt,
		&g.ViewCount,
		&viewedAt,
		&viewerIP,
		&viewerUA,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return accessgrants.Grant{}, err
		}
		return accessgrants.Grant{}, fmt.Errorf("scan qr_access: %w", err)
	}

	g.AccessLevel = accessgrants.AccessLevel(level)
	g.LastViewedAt = fromNullTime(viewedAt)
	if g.LastViewedAt != nil {
		g.LastViewer = &accessgrants.ViewerInfo{
			IP:        viewerIP.String,
			UserAgent: viewerUA.String,
			ViewedAt:  *g.LastViewedAt,
		}
	}
	return g, nil
}
