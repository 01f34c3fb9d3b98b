package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"patient-health-qr/internal/adapters/auth/identitysvc"
	"patient-health-qr/internal/adapters/auth/jwtauth"
	mem "patient-health-qr/internal/adapters/storage/memory"
	pg "patient-health-qr/internal/adapters/storage/postgres"
	"patient-health-qr/internal/domain/accessgrants"
	"patient-health-qr/internal/platform/config"
	"patient-health-qr/internal/platform/logger"
	"patient-health-qr/internal/platform/metrics"
	"patient-health-qr/internal/platform/ratelimit"
	platformredis "patient-health-qr/internal/platform/redis"
	"patient-health-qr/internal/ports/auth"
	"patient-health-qr/internal/router"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "patient-health-qr",
		Short:         "QR access tokens for patient health records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newTokenCmd(), newJWTCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var seedDemo bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, seedDemo)
		},
	}
	cmd.Flags().BoolVar(&seedDemo, "seed-demo", false, "seed a demo patient into the in-memory stores (ignored with DB_DSN)")
	return cmd
}

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print a freshly generated QR token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tok, err := accessgrants.GenerateToken()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
}

// newJWTCmd firma un access token de desarrollo para probar AUTH_MODE=jwt.
func newJWTCmd() *cobra.Command {
	var (
		secret string
		issuer string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "jwt <patient-id>",
		Short: "Sign a development access token for a patient",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if secret == "" {
				return errors.New("jwt: --secret or JWT_SECRET required")
			}
			if issuer == "" {
				issuer = os.Getenv("JWT_ISSUER")
			}
			tok, err := jwtauth.Sign(secret, issuer, args[0], ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "HS256 secret (default $JWT_SECRET)")
	cmd.Flags().StringVar(&issuer, "issuer", "", "issuer claim (default $JWT_ISSUER)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, seedDemo bool) error {
	log := logger.New(logger.Options{
		Level:    logger.ParseLevel(cfg.LogLevel),
		Format:   logger.ParseFormat(cfg.LogFormat),
		App:      cfg.AppName,
		FilePath: cfg.LogFile,
	})
	defer func() { _ = log.Sync() }()

	verifier, err := buildVerifier(cfg)
	if err != nil {
		return err
	}
	if verifier == nil {
		log.Warn("auth in dev mode: X-Debug-User-ID is trusted", nil)
	}

	opts := router.Options{
		AuthVerifier:      verifier,
		Logger:            log,
		Metrics:           metrics.New(),
		BaseURL:           cfg.FrontendBaseURL,
		Location:          cfg.Location(),
		RatePerMinute:     cfg.RateLimitPerMinute,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	}

	var db *sql.DB
	if cfg.DBDSN != "" {
		db, err = pg.Open(ctx, cfg.DBDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		opts.DB = db
		log.Info("using postgres storage", nil)
	} else {
		log.Warn("DB_DSN empty, using in-memory storage", nil)
		if seedDemo {
			stores, err := seedDemoStores(ctx)
			if err != nil {
				return err
			}
			opts.Patients = stores.patients
			opts.EmergencyInfo = stores.emergency
			opts.Records = stores.records
			log.Info("demo patient seeded", map[string]any{"patient_id": demoPatientID})
		}
	}

	rdb, err := platformredis.Open(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		opts.Limiter = ratelimit.NewRedisLimiter(rdb, rateOrDefault(cfg.RateLimitPerMinute), time.Minute)
		log.Info("using redis rate limiter", nil)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.NewRouter(opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": srv.Addr, "auth_mode": cfg.AuthMode})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func buildVerifier(cfg *config.Config) (auth.IdentityVerifier, error) {
	switch cfg.AuthMode {
	case config.AuthModeJWT:
		return jwtauth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer), nil
	case config.AuthModeRemote:
		v, err := identitysvc.NewVerifier(identitysvc.Config{
			BaseURL: cfg.IdentityURL,
			APIKey:  cfg.IdentityAPIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("identity verifier: %w", err)
		}
		return v, nil
	default:
		return nil, nil
	}
}

func rateOrDefault(n int) int {
	if n <= 0 {
		return 60
	}
	return n
}

type demoStores struct {
	patients  *mem.PatientsRepo
	emergency *mem.EmergencyInfoRepo
	records   *mem.HealthRecordsRepo
}
