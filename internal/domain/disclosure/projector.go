package disclosure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"patient-health-qr/internal/domain/accessgrants"
	"patient-health-qr/internal/domain/emergencyinfo"
	"patient-health-qr/internal/domain/healthrecords"
	"patient-health-qr/internal/domain/patients"
	"patient-health-qr/internal/platform/logger"
	"patient-health-qr/internal/platform/metrics"

	"golang.org/x/sync/errgroup"
)

const unknownBloodType = "Unknown"

// ErrOwnerNotFound envuelve accessgrants.ErrNotFound: al visitante se le responde igual que a un token inválido.
var ErrOwnerNotFound = fmt.Errorf("owner profile: %w", accessgrants.ErrNotFound)

type ProfileReader interface {
	GetByID(ctx context.Context, id string) (patients.Profile, error)
}

type EmergencyInfoReader interface {
	GetByPatient(ctx context.Context, patientID string) (emergencyinfo.Info, error)
}

type RecordLister interface {
	ListActive(ctx context.Context, patientID string, f healthrecords.ListFilter) ([]healthrecords.Record, error)
}

type Projector struct {
	profiles  ProfileReader
	emergency EmergencyInfoReader
	records   RecordLister

	now     func() time.Time
	loc     *time.Location
	log     logger.Logger
	metrics *metrics.Metrics
}

type Option func(*Projector)

func WithClock(now func() time.Time) Option {
	return func(p *Projector) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLocation: zona en la que se renderizan los timestamps del payload.
func WithLocation(loc *time.Location) Option {
	return func(p *Projector) {
		if loc != nil {
			p.loc = loc
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(p *Projector) {
		if l != nil {
			p.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Projector) { p.metrics = m }
}

func NewProjector(profiles ProfileReader, emergency EmergencyInfoReader, records RecordLister, opts ...Option) *Projector {
	p := &Projector{
		profiles:  profiles,
		emergency: emergency,
		records:   records,
		now:       time.Now,
		loc:       time.UTC,
		log:       logger.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With(map[string]any{"component": "disclosure"})
	return p
}

// Disclose chequea que el nivel pedido sea exactamente el del grant y proyecta.
func (p *Projector) Disclose(ctx context.Context, ownerID string, verified, requested accessgrants.AccessLevel) (any, error) {
	if requested != verified {
		return nil, accessgrants.ErrAccessLevelMismatch
	}
	return p.Project(ctx, ownerID, verified)
}

// Project arma el payload del nivel. Lee perfil, info de emergencia y registros en paralelo.
func (p *Projector) Project(ctx context.Context, ownerID string, level accessgrants.AccessLevel) (Payload, error) {
	if level.Rank() == 0 {
		return Payload{}, accessgrants.ErrInvalidAccessLevel
	}

	var (
		profile  patients.Profile
		info     *emergencyinfo.Info
		recent   []healthrecords.Record
		all      []healthrecords.Record
		now      = p.now().UTC()
		from     = now.Add(-accessgrants.RecentRecordsWindow)
		wantRecs = accessgrants.Includes(level, accessgrants.FieldRecentHealthRecords)
		wantAll  = accessgrants.Includes(level, accessgrants.FieldAllHealthRecords)
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pr, err := p.profiles.GetByID(gctx, ownerID)
		if err != nil {
			if errors.Is(err, patients.ErrNotFound) {
				return ErrOwnerNotFound
			}
			return fmt.Errorf("get profile: %w", err)
		}
		profile = pr
		return nil
	})

	g.Go(func() error {
		ei, err := p.emergency.GetByPatient(gctx, ownerID)
		if err != nil {
			if errors.Is(err, emergencyinfo.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("get emergency info: %w", err)
		}
		info = &ei
		return nil
	})

	if wantRecs {
		g.Go(func() error {
			if wantAll {
				// full: una sola lectura; los recientes salen de la lista completa
				recs, err := p.records.ListActive(gctx, ownerID, healthrecords.ListFilter{})
				if err != nil {
					return fmt.Errorf("list records: %w", err)
				}
				all = recs
				recent = recentOf(recs, from)
				return nil
			}
			recs, err := p.records.ListActive(gctx, ownerID, healthrecords.ListFilter{
				CreatedFrom: &from,
				Limit:       accessgrants.RecentRecordsLimit,
			})
			if err != nil {
				return fmt.Errorf("list recent records: %w", err)
			}
			recent = recentOf(recs, from)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Payload{}, err
	}

	out := Payload{
		PatientInfo: PatientInfo{
			Name:        profile.DisplayName(),
			DateOfBirth: profile.DateOfBirth.In(p.loc),
			BloodType:   bloodType(profile, info),
		},
		CriticalAllergies:  []string{},
		CurrentMedications: []string{},
	}

	if info != nil {
		out.EmergencyContact = &EmergencyContact{Name: info.ContactName, Phone: info.ContactPhone}
		out.CriticalAllergies = p.decodeList(ownerID, accessgrants.FieldCriticalAllergies, info.CriticalAllergies)
		out.CurrentMedications = p.decodeList(ownerID, accessgrants.FieldCurrentMedications, info.CurrentMedications)
	}

	if wantRecs {
		// basic recorta el contenido; full lo muestra completo
		rs := p.toRecords(recent, !wantAll)
		out.RecentHealthRecords = &rs
	}

	if wantAll {
		rs := p.toRecords(all, false)
		out.AllHealthRecords = &rs

		conditions := []string{}
		if info != nil {
			conditions = p.decodeList(ownerID, accessgrants.FieldChronicConditions, info.ChronicConditions)
		}
		out.ChronicConditions = &conditions
	}

	return out, nil
}

func bloodType(pr patients.Profile, info *emergencyinfo.Info) string {
	if bt := strings.TrimSpace(pr.BloodType); bt != "" {
		return bt
	}
	if info != nil {
		if bt := strings.TrimSpace(info.BloodType); bt != "" {
			return bt
		}
	}
	return unknownBloodType
}

// recentOf filtra por ventana y limita; asume orden CreatedAt descendente.
func recentOf(recs []healthrecords.Record, from time.Time) []healthrecords.Record {
	out := make([]healthrecords.Record, 0, accessgrants.RecentRecordsLimit)
	for _, r := range recs {
		if r.CreatedAt.Before(from) {
			continue
		}
		out = append(out, r)
		if len(out) == accessgrants.RecentRecordsLimit {
			break
		}
	}
	return out
}

func (p *Projector) toRecords(recs []healthrecords.Record, truncate bool) []HealthRecord {
	out := make([]HealthRecord, 0, len(recs))
	for _, r := range recs {
		content := r.Content
		if truncate {
			content = Preview(content)
		}
		var recorded *time.Time
		if r.DateRecorded != nil {
			t := r.DateRecorded.In(p.loc)
			recorded = &t
		}
		out = append(out, HealthRecord{
			Title:        r.Title,
			Category:     r.Category,
			Content:      content,
			DateRecorded: recorded,
			CreatedAt:    r.CreatedAt.In(p.loc),
		})
	}
	return out
}

// decodeList nunca falla: un JSON roto se divulga como lista vacía.
func (p *Projector) decodeList(ownerID string, field accessgrants.Field, raw string) []string {
	items, err := emergencyinfo.DecodeList(raw)
	if err != nil {
		p.metrics.IncMalformedListField(string(field))
		p.log.Warn("malformed stored list, disclosing empty", map[string]any{
			"owner_id": ownerID,
			"field":    string(field),
			"err":      err,
		})
		return []string{}
	}
	return items
}

// Preview corta a PreviewLength runas y agrega el marcador si hubo corte.
func Preview(s string) string {
	if utf8.RuneCountInString(s) <= accessgrants.PreviewLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:accessgrants.PreviewLength]) + accessgrants.TruncationMarker
}
