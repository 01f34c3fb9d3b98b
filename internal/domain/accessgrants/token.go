package accessgrants

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

// TokenBytes: 256 bits de entropía.
const TokenBytes = 32

// TokenGenerator produce tokens opacos URL-safe.
type TokenGenerator func() (string, error)

// GenerateToken lee de crypto/rand y codifica en base64 URL-safe sin padding
// (43 caracteres de [A-Za-z0-9_-]). Si el CSPRNG falla, la emisión falla.
func GenerateToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SanitizeToken deja sólo [A-Za-z0-9_-] después de un trim.
// Se aplica a todo token externo antes de buscarlo o loguearlo.
func SanitizeToken(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if isTokenChar(c) {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func isTokenChar(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_'
}

// Fingerprint es lo único del token que va a los logs.
func Fingerprint(token string) string {
	if len(token) <= 6 {
		return "***"
	}
	return token[:6] + "…"
}
