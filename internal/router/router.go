package router

import (
	"database/sql"
	"net/http"
	"time"

	_ "patient-health-qr/docs"
	mem "patient-health-qr/internal/adapters/storage/memory"
	pg "patient-health-qr/internal/adapters/storage/postgres"
	"patient-health-qr/internal/domain/accessgrants"
	"patient-health-qr/internal/domain/disclosure"
	"patient-health-qr/internal/domain/emergencyinfo"
	"patient-health-qr/internal/domain/healthrecords"
	"patient-health-qr/internal/domain/patients"
	"patient-health-qr/internal/middleware"
	"patient-health-qr/internal/platform/logger"
	"patient-health-qr/internal/platform/metrics"
	"patient-health-qr/internal/platform/ratelimit"
	"patient-health-qr/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

const defaultRatePerMinute = 60

type Options struct {
	AuthVerifier auth.IdentityVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres para todos los stores.
	DB *sql.DB

	// Stores explícitos (tests / seed en dev). Ignorados si hay DB.
	Grants        accessgrants.Repository
	Patients      patients.Repository
	EmergencyInfo emergencyinfo.Repository
	Records       healthrecords.Repository

	// Limiter para rutas públicas; nil => en memoria con RatePerMinute.
	Limiter       ratelimit.Limiter
	RatePerMinute int

	// TrustProxyHeaders: solo detrás de un proxy propio. Con true, RemoteAddr
	// se toma de X-Forwarded-For / X-Real-IP y eso alimenta el rate limit.
	TrustProxyHeaders bool

	Logger   logger.Logger
	Metrics  *metrics.Metrics
	BaseURL  string
	Location *time.Location
	Clock    func() time.Time
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.AccessLog(log, routePattern))
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", m.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	var (
		grantsRepo    accessgrants.Repository
		patientRepo   patients.Repository
		emergencyRepo emergencyinfo.Repository
		recordsRepo   healthrecords.Repository
	)

	if opts.DB != nil {
		grantsRepo = pg.NewAccessGrantsRepo(opts.DB)
		patientRepo = pg.NewPatientsRepo(opts.DB)
		emergencyRepo = pg.NewEmergencyInfoRepo(opts.DB)
		recordsRepo = pg.NewHealthRecordsRepo(opts.DB)
	} else {
		grantsRepo = opts.Grants
		if grantsRepo == nil {
			grantsRepo = mem.NewAccessGrantsRepo()
		}
		patientRepo = opts.Patients
		if patientRepo == nil {
			patientRepo = mem.NewPatientsRepo()
		}
		emergencyRepo = opts.EmergencyInfo
		if emergencyRepo == nil {
			emergencyRepo = mem.NewEmergencyInfoRepo()
		}
		recordsRepo = opts.Records
		if recordsRepo == nil {
			recordsRepo = mem.NewHealthRecordsRepo()
		}
	}

	limiter := opts.Limiter
	if limiter == nil {
		rate := opts.RatePerMinute
		if rate <= 0 {
			rate = defaultRatePerMinute
		}
		limiter = ratelimit.NewMemoryLimiter(rate, time.Minute)
	}

	grantsSvc := accessgrants.NewService(grantsRepo,
		accessgrants.WithClock(clock),
		accessgrants.WithBaseURL(opts.BaseURL),
		accessgrants.WithLogger(log),
		accessgrants.WithMetrics(m),
	)
	projector := disclosure.NewProjector(patientRepo, emergencyRepo, recordsRepo,
		disclosure.WithClock(clock),
		disclosure.WithLocation(loc),
		disclosure.WithLogger(log),
		disclosure.WithMetrics(m),
	)

	publicLimit := ratelimit.Middleware(limiter, middleware.RemoteIP,
		func(req *http.Request, key string, _ error) {
			m.IncRateLimited()
			log.Warn("rate limit exceeded", map[string]any{"ip": key, "route": routePattern(req)})
		},
		func(req *http.Request, key string, err error) {
			log.Error("rate limiter unavailable, allowing request", map[string]any{"ip": key, "err": err})
		},
	)

	accessgrants.RegisterRoutes(r, accessgrants.HandlerDeps{
		Service:          grantsSvc,
		Owners:           patients.NewDirectory(patientRepo),
		Payloads:         projector,
		Logger:           log,
		Metrics:          m,
		Location:         loc,
		PublicMiddleware: []func(http.Handler) http.Handler{publicLimit},
	})

	return r
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
