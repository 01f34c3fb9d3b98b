package accessgrants

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"patient-health-qr/internal/platform/logger"
	"patient-health-qr/internal/platform/metrics"

	"github.com/google/uuid"
)

const (
	MinDurationHours     = 5.0 / 60.0
	MaxDurationHours     = 24.0
	DefaultDurationHours = 2.0

	// Los clientes mandan 5 minutos como 0.083 horas; se acepta hasta ~1.8s por
	// debajo del mínimo y se redondea a 5 minutos exactos.
	durationToleranceHours = 0.0005

	minDuration         = 5 * time.Minute
	revokeBackdate      = time.Minute
	maxTokenGenAttempts = 3
)

type Service struct {
	repo     Repository
	now      func() time.Time
	newToken TokenGenerator
	baseURL  string
	log      logger.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithTokenGenerator(gen TokenGenerator) Option {
	return func(s *Service) {
		if gen != nil {
			s.newToken = gen
		}
	}
}

// WithBaseURL: base del frontend para armar {base}/view/{level}/{token}.
func WithBaseURL(base string) Option {
	return func(s *Service) {
		s.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		now:      time.Now,
		newToken: GenerateToken,
		log:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(map[string]any{"component": "accessgrants"})
	return s
}

type IssueInput struct {
	OwnerID       string
	AccessLevel   string
	DurationHours float64
}

type IssueResult struct {
	Grant    Grant
	ShareURL string
}

// Issue crea un grant nuevo para el paciente autenticado.
func (s *Service) Issue(ctx context.Context, in IssueInput) (IssueResult, error) {
	ownerID := strings.TrimSpace(in.OwnerID)
	if ownerID == "" {
		return IssueResult{}, ErrUnauthenticated
	}

	level, err := ParseAccessLevel(in.AccessLevel)
	if err != nil {
		return IssueResult{}, err
	}

	dur, err := durationFromHours(in.DurationHours)
	if err != nil {
		return IssueResult{}, err
	}

	now := s.now().UTC()
	g := Grant{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		AccessLevel: level,
		IssuedAt:    now,
		ExpiresAt:   now.Add(dur),
	}

	// Con 256 bits una colisión no debería pasar nunca; si el store la reporta, regeneramos.
	for attempt := 1; ; attempt++ {
		tok, err := s.newToken()
		if err != nil {
			s.log.Error("token generation failed", map[string]any{"owner_id": ownerID, "err": err})
			return IssueResult{}, err
		}
		g.Token = tok

		err = s.repo.Create(ctx, g)
		if err == nil {
			break
		}
		if errors.Is(err, ErrTokenConflict) && attempt < maxTokenGenAttempts {
			s.log.Warn("token collision, regenerating", map[string]any{"attempt": attempt})
			continue
		}
		return IssueResult{}, fmt.Errorf("create grant: %w", err)
	}

	s.metrics.IncIssued(string(level))
	s.log.Info("qr grant issued", map[string]any{
		"owner_id":     ownerID,
		"grant_id":     g.ID,
		"access_level": string(level),
		"expires_at":   g.ExpiresAt,
	})

	return IssueResult{Grant: g, ShareURL: s.ShareURL(g)}, nil
}

func durationFromHours(h float64) (time.Duration, error) {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0, ErrInvalidDuration
	}
	if h < MinDurationHours-durationToleranceHours || h > MaxDurationHours {
		return 0, ErrInvalidDuration
	}
	d := time.Duration(math.Round(h * float64(time.Hour)))
	if d < minDuration {
		d = minDuration
	}
	return d, nil
}

type VerificationResult struct {
	GrantID     string
	OwnerID     string
	AccessLevel AccessLevel
	ExpiresAt   time.Time
	ViewCount   int
}

// Verify es la única puerta hacia la divulgación: sanitiza, busca, chequea expiración
// y registra la vista. Un grant expirado no se toca.
func (s *Service) Verify(ctx context.Context, rawToken string, viewer ViewerInfo) (VerificationResult, error) {
	token := SanitizeToken(rawToken)
	if token == "" {
		s.metrics.IncVerification(metrics.OutcomeInvalidFormat)
		return VerificationResult{}, ErrInvalidTokenFormat
	}
	fp := Fingerprint(token)

	g, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.IncVerification(metrics.OutcomeNotFound)
			s.log.Warn("unknown qr token", map[string]any{"token": fp, "ip": viewer.IP})
			return VerificationResult{}, ErrNotFound
		}
		s.metrics.IncVerification(metrics.OutcomeError)
		return VerificationResult{}, fmt.Errorf("get grant by token: %w", err)
	}

	now := s.now().UTC()
	if !g.ActiveAt(now) {
		s.metrics.IncVerification(metrics.OutcomeExpired)
		s.log.Warn("expired qr token", map[string]any{"token": fp, "grant_id": g.ID, "expired_at": g.ExpiresAt})
		return VerificationResult{}, ErrExpired
	}

	viewer.ViewedAt = now
	updated, err := s.repo.RecordView(ctx, g.ID, viewer, now)
	if err != nil {
		switch {
		case errors.Is(err, ErrExpired):
			// revocado entre la lectura y la escritura
			s.metrics.IncVerification(metrics.OutcomeExpired)
			return VerificationResult{}, ErrExpired
		case errors.Is(err, ErrNotFound):
			s.metrics.IncVerification(metrics.OutcomeNotFound)
			return VerificationResult{}, ErrNotFound
		}
		s.metrics.IncVerification(metrics.OutcomeError)
		return VerificationResult{}, fmt.Errorf("record view: %w", err)
	}

	s.metrics.IncVerification(metrics.OutcomeVerified)
	s.log.Info("qr token verified", map[string]any{
		"owner_id":     updated.OwnerID,
		"grant_id":     updated.ID,
		"access_level": string(updated.AccessLevel),
		"view_count":   updated.ViewCount,
	})

	return VerificationResult{
		GrantID:     updated.ID,
		OwnerID:     updated.OwnerID,
		AccessLevel: updated.AccessLevel,
		ExpiresAt:   updated.ExpiresAt,
		ViewCount:   updated.ViewCount,
	}, nil
}

// Revoke fuerza ExpiresAt al pasado. Idempotente: un grant ya expirado queda como está.
func (s *Service) Revoke(ctx context.Context, grantID, ownerID string) error {
	grantID = strings.TrimSpace(grantID)
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return ErrUnauthenticated
	}
	if grantID == "" {
		return ErrNotFound
	}

	g, err := s.repo.GetByID(ctx, grantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get grant: %w", err)
	}
	// Grant ajeno = no existe (no se filtra su existencia).
	if g.OwnerID != ownerID {
		return ErrNotFound
	}

	now := s.now().UTC()
	if !g.ActiveAt(now) {
		return nil
	}

	g.ExpiresAt = now.Add(-revokeBackdate)
	if err := s.repo.Update(ctx, g); err != nil {
		return fmt.Errorf("update grant: %w", err)
	}

	s.metrics.IncRevoked()
	s.log.Info("qr grant revoked", map[string]any{"owner_id": ownerID, "grant_id": grantID})
	return nil
}

// ListActive: grants del dueño con ExpiresAt > now, más nuevos primero.
func (s *Service) ListActive(ctx context.Context, ownerID string) ([]Grant, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}
	items, err := s.repo.ListActiveByOwner(ctx, ownerID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list active grants: %w", err)
	}
	return items, nil
}

func (s *Service) ShareURL(g Grant) string {
	return fmt.Sprintf("%s/view/%s/%s", s.baseURL, g.AccessLevel, g.Token)
}
