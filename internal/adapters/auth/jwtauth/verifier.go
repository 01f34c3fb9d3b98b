package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"patient-health-qr/internal/ports/auth"

	"github.com/golang-jwt/jwt/v5"
)

// Claims del access token que emite el servicio de identidad (HS256).
type Claims struct {
	Email     string `json:"email,omitempty"`
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Verifier implementa auth.IdentityVerifier validando JWT firmados con secreto compartido.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
		now:    time.Now,
	}
}

func (v *Verifier) Verify(_ context.Context, bearer string) (auth.Identity, error) {
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return auth.Identity{}, auth.ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.ParseWithClaims(bearer, &Claims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return auth.Identity{}, fmt.Errorf("%w: token expired", auth.ErrInvalidToken)
		}
		return auth.Identity{}, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return auth.Identity{}, auth.ErrInvalidToken
	}

	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return auth.Identity{}, fmt.Errorf("%w: missing sub", auth.ErrInvalidToken)
	}

	id := auth.Identity{
		PatientID: sub,
		Email:     strings.TrimSpace(claims.Email),
		SessionID: strings.TrimSpace(claims.SessionID),
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return id, nil
}

// Sign emite un token para un paciente; lo usan los tests y el comando de desarrollo.
func Sign(secret, issuer, patientID string, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   patientID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
