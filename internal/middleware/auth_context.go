package middleware

import (
	"context"
	"net/http"
	"strings"

	"patient-health-qr/internal/ports/auth"
)

type ctxKey string

const identityKey ctxKey = "identity"

// DebugUserHeader sólo se honra en modo dev (verifier == nil).
const DebugUserHeader = "X-Debug-User-ID"

// AuthContext:
// - Si verifier != nil y viene Bearer token => Verify() y setea la identidad.
// - Si verifier == nil => modo dev: X-Debug-User-ID setea la identidad.
// - Sin identidad el request sigue igual; las rutas del dueño deciden 401.
//   Las rutas públicas del QR nunca la miran.
func AuthContext(verifier auth.IdentityVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				if uid := strings.TrimSpace(r.Header.Get(DebugUserHeader)); uid != "" {
					next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), auth.Identity{PatientID: uid})))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := verifier.Verify(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// PatientID devuelve el paciente autenticado ("" si no hay).
func PatientID(ctx context.Context) string {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	if !ok {
		return ""
	}
	return strings.TrimSpace(id.PatientID)
}

func bearerToken(authHeader string) string {
	parts := strings.SplitN(strings.TrimSpace(authHeader), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
