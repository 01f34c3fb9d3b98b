package middleware

import (
	"net"
	"net/http"
	"strings"
	"unicode/utf8"
)

const maxUserAgentLen = 512

// ClientIP: primer valor de X-Forwarded-For, luego X-Real-IP, luego RemoteAddr.
// Solo para auditoría de vistas y logs: los headers los controla el cliente.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	return RemoteIP(r)
}

// RemoteIP es la IP de la conexión (RemoteAddr). Es la key del rate limit.
func RemoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if ra := strings.TrimSpace(r.RemoteAddr); ra != "" {
		return ra
	}
	return "unknown"
}

// UserAgent recortado y sin caracteres de control (va a la auditoría y a los logs).
func UserAgent(r *http.Request) string {
	ua := strings.Map(func(c rune) rune {
		if c < 0x20 || c == 0x7f {
			return -1
		}
		return c
	}, r.UserAgent())
	if len(ua) > maxUserAgentLen {
		cut := maxUserAgentLen
		for cut > 0 && !utf8.RuneStart(ua[cut]) {
			cut--
		}
		ua = ua[:cut]
	}
	return strings.TrimSpace(ua)
}
