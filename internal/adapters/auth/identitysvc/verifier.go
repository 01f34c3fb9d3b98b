package identitysvc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"patient-health-qr/internal/platform/httpclient"
	"patient-health-qr/internal/ports/auth"
)

var ErrUpstream = errors.New("identity service upstream error")

const verifyPath = "/v1/sessions/verify"

type Config struct {
	BaseURL string
	APIKey  string

	// Header para la API key; "X-Api-Key" si viene vacío.
	APIKeyHeader string
	Timeout      time.Duration
}

// Verifier implementa auth.IdentityVerifier delegando en el servicio de identidad
// (el que maneja registro, login y sesiones).
type Verifier struct {
	client       *httpclient.Client
	apiKey       string
	apiKeyHeader string
}

func NewVerifier(cfg Config) (*Verifier, error) {
	c, err := httpclient.New(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	h := strings.TrimSpace(cfg.APIKeyHeader)
	if h == "" {
		h = "X-Api-Key"
	}
	return &Verifier{
		client:       c,
		apiKey:       strings.TrimSpace(cfg.APIKey),
		apiKeyHeader: h,
	}, nil
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (v *Verifier) Verify(ctx context.Context, bearer string) (auth.Identity, error) {
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return auth.Identity{}, auth.ErrMissingToken
	}

	headers := map[string]string{"Authorization": "Bearer " + bearer}
	if v.apiKey != "" {
		headers[v.apiKeyHeader] = v.apiKey
	}

	var out verifyResponse
	err := v.client.DoJSON(ctx, http.MethodPost, verifyPath, headers, verifyRequest{Token: bearer}, &out)
	switch {
	case err == nil:
	case httpclient.HasStatus(err, http.StatusUnauthorized, http.StatusForbidden):
		return auth.Identity{}, auth.ErrInvalidToken
	default:
		return auth.Identity{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	uid := strings.TrimSpace(out.UserID)
	if uid == "" {
		return auth.Identity{}, fmt.Errorf("%w: response missing user_id", ErrUpstream)
	}

	return auth.Identity{
		PatientID: uid,
		Email:     strings.TrimSpace(out.Email),
		SessionID: strings.TrimSpace(out.SessionID),
		ExpiresAt: out.ExpiresAt,
	}, nil
}
