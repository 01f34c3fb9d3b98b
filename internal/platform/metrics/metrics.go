package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes de verificación.
const (
	OutcomeVerified      = "verified"
	OutcomeNotFound      = "not_found"
	OutcomeExpired       = "expired"
	OutcomeInvalidFormat = "invalid_format"
	OutcomeError         = "error"
)

// Metrics agrupa los contadores del subsistema QR. Usa un registry propio
// para que cada router (y cada test) tenga su set sin colisiones.
type Metrics struct {
	registry *prometheus.Registry

	GrantsIssued       *prometheus.CounterVec
	GrantsRevoked      prometheus.Counter
	Verifications      *prometheus.CounterVec
	Disclosures        *prometheus.CounterVec
	LevelMismatches    prometheus.Counter
	RateLimited        prometheus.Counter
	MalformedListField *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		GrantsIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qr_grants_issued_total",
			Help: "QR access grants issued, by access level",
		}, []string{"access_level"}),
		GrantsRevoked: f.NewCounter(prometheus.CounterOpts{
			Name: "qr_grants_revoked_total",
			Help: "QR access grants revoked by their owner",
		}),
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qr_verifications_total",
			Help: "QR token verification attempts, by outcome",
		}, []string{"outcome"}),
		Disclosures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qr_disclosures_total",
			Help: "Health data payloads disclosed, by access level",
		}, []string{"access_level"}),
		LevelMismatches: f.NewCounter(prometheus.CounterOpts{
			Name: "qr_access_level_mismatch_total",
			Help: "Data requests whose requested level did not match the grant",
		}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "qr_rate_limited_total",
			Help: "Public requests rejected by the rate limiter",
		}),
		MalformedListField: f.NewCounterVec(prometheus.CounterOpts{
			Name: "qr_malformed_list_field_total",
			Help: "Stored JSON list fields that failed to decode and were disclosed as empty",
		}, []string{"field"}),
	}
}

// Los métodos toleran receptor nil: los servicios pueden correr sin métricas.

func (m *Metrics) IncIssued(level string) {
	if m == nil {
		return
	}
	m.GrantsIssued.WithLabelValues(level).Inc()
}

func (m *Metrics) IncRevoked() {
	if m == nil {
		return
	}
	m.GrantsRevoked.Inc()
}

func (m *Metrics) IncVerification(outcome string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncDisclosure(level string) {
	if m == nil {
		return
	}
	m.Disclosures.WithLabelValues(level).Inc()
}

func (m *Metrics) IncLevelMismatch() {
	if m == nil {
		return
	}
	m.LevelMismatches.Inc()
}

func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}

func (m *Metrics) IncMalformedListField(field string) {
	if m == nil {
		return
	}
	m.MalformedListField.WithLabelValues(field).Inc()
}

// Handler expone /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
