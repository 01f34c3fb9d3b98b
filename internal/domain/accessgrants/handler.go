package accessgrants

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"patient-health-qr/internal/middleware"
	"patient-health-qr/internal/platform/logger"
	"patient-health-qr/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

// OwnerDirectory resuelve el nombre visible del paciente (evita importar patients).
type OwnerDirectory interface {
	DisplayName(ctx context.Context, ownerID string) (string, error)
}

// PayloadSource arma el payload para el nivel verificado. Devuelve ErrAccessLevelMismatch
// si requested no coincide con verified.
type PayloadSource interface {
	Disclose(ctx context.Context, ownerID string, verified, requested AccessLevel) (any, error)
}

type HandlerDeps struct {
	Service  *Service
	Owners   OwnerDirectory
	Payloads PayloadSource
	Logger   logger.Logger
	Metrics  *metrics.Metrics
	Location *time.Location

	// PublicMiddleware se aplica sólo a verify/data (rate limit por IP).
	PublicMiddleware []func(http.Handler) http.Handler
}

const (
	msgNotFound = "invalid or expired QR code"
	msgExpired  = "QR code has expired"
)

func RegisterRoutes(r chi.Router, deps HandlerDeps) {
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}

	r.Route("/qr", func(qr chi.Router) {
		// Paciente autenticado
		qr.Post("/generate", generateHandler(deps))
		qr.Get("/active", listActiveHandler(deps))
		qr.Delete("/revoke/{grantID}", revokeHandler(deps))

		// Público (quien escanea el QR)
		qr.Group(func(pub chi.Router) {
			pub.Use(deps.PublicMiddleware...)
			pub.Get("/verify/{token}", verifyHandler(deps))
			pub.Get("/data/{token}/{accessLevel}", dataHandler(deps))
		})
	})
}

type generateRequest struct {
	AccessLevel   string   `json:"access_level" example:"emergency"`
	DurationHours *float64 `json:"duration_hours,omitempty" example:"2"`
}

type generateResponse struct {
	GrantID     string    `json:"grant_id"`
	Token       string    `json:"token"`
	ShareURL    string    `json:"share_url"`
	AccessLevel string    `json:"access_level"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

type verifyResponse struct {
	IsValid          bool      `json:"is_valid"`
	OwnerID          string    `json:"owner_id"`
	AccessLevel      string    `json:"access_level"`
	ExpiresAt        time.Time `json:"expires_at"`
	OwnerDisplayName string    `json:"owner_display_name"`
	ViewCount        int       `json:"view_count"`
}

type activeGrantResponse struct {
	GrantID     string     `json:"grant_id"`
	AccessLevel string     `json:"access_level"`
	Token       string     `json:"token"`
	ShareURL    string     `json:"share_url"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	ViewedAt    *time.Time `json:"viewed_at"`
	IsViewed    bool       `json:"is_viewed"`
	ViewCount   int        `json:"view_count"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// generateHandler godoc
// @Summary      Genera un QR de acceso
// @Description  Emite un token de acceso temporal para el paciente autenticado.
// @Tags         qr
// @Accept       json
// @Produce      json
// @Param        body  body      generateRequest  true  "Nivel y duración (horas, 5 min a 24 h)"
// @Success      201   {object}  generateResponse
// @Failure      400   {string}  string
// @Failure      401   {string}  string
// @Security     BearerAuth
// @Router       /qr/generate [post]
func generateHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := middleware.PatientID(r.Context())
		if ownerID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		hours := DefaultDurationHours
		if req.DurationHours != nil {
			hours = *req.DurationHours
		}

		res, err := deps.Service.Issue(r.Context(), IssueInput{
			OwnerID:       ownerID,
			AccessLevel:   req.AccessLevel,
			DurationHours: hours,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidAccessLevel), errors.Is(err, ErrInvalidDuration):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrUnauthenticated):
				http.Error(w, "unauthorized", http.StatusUnauthorized)
			default:
				deps.Logger.Error("issue grant failed", map[string]any{"owner_id": ownerID, "err": err})
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusCreated, generateResponse{
			GrantID:     res.Grant.ID,
			Token:       res.Grant.Token,
			ShareURL:    res.ShareURL,
			AccessLevel: string(res.Grant.AccessLevel),
			ExpiresAt:   res.Grant.ExpiresAt.In(deps.Location),
			CreatedAt:   res.Grant.IssuedAt.In(deps.Location),
		})
	}
}

// verifyHandler godoc
// @Summary      Verifica un token QR
// @Description  Valida el token y registra la vista. No requiere autenticación.
// @Tags         qr
// @Produce      json
// @Param        token  path      string  true  "Token del QR"
// @Success      200    {object}  verifyResponse
// @Failure      400    {string}  string
// @Failure      404    {string}  string
// @Failure      429    {string}  string
// @Router       /qr/verify/{token} [get]
func verifyHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok := verifyRequest(w, r, deps)
		if !ok {
			return
		}

		name := ""
		if deps.Owners != nil {
			n, err := deps.Owners.DisplayName(r.Context(), res.OwnerID)
			if err != nil {
				deps.Logger.Warn("owner display name lookup failed", map[string]any{"grant_id": res.GrantID, "err": err})
			}
			name = n
		}

		writeJSON(w, http.StatusOK, verifyResponse{
			IsValid:          true,
			OwnerID:          res.OwnerID,
			AccessLevel:      string(res.AccessLevel),
			ExpiresAt:        res.ExpiresAt.In(deps.Location),
			OwnerDisplayName: name,
			ViewCount:        res.ViewCount,
		})
	}
}

// dataHandler godoc
// @Summary      Datos de salud según nivel
// @Description  Re-verifica el token (cuenta como vista) y devuelve el payload del nivel concedido.
// @Tags         qr
// @Produce      json
// @Param        token        path      string  true  "Token del QR"
// @Param        accessLevel  path      string  true  "emergency | basic | full"
// @Success      200          {object}  map[string]interface{}
// @Failure      400          {string}  string
// @Failure      404          {string}  string
// @Failure      429          {string}  string
// @Router       /qr/data/{token}/{accessLevel} [get]
func dataHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requested, err := ParseAccessLevel(chi.URLParam(r, "accessLevel"))
		if err != nil {
			http.Error(w, "invalid access level", http.StatusBadRequest)
			return
		}

		res, ok := verifyRequest(w, r, deps)
		if !ok {
			return
		}

		if deps.Payloads == nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		payload, err := deps.Payloads.Disclose(r.Context(), res.OwnerID, res.AccessLevel, requested)
		if err != nil {
			switch {
			case errors.Is(err, ErrAccessLevelMismatch):
				deps.Metrics.IncLevelMismatch()
				http.Error(w, "access level mismatch", http.StatusBadRequest)
				return
			case errors.Is(err, ErrNotFound):
				http.Error(w, msgNotFound, http.StatusNotFound)
				return
			}
			deps.Logger.Error("build payload failed", map[string]any{"grant_id": res.GrantID, "err": err})
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		deps.Metrics.IncDisclosure(string(res.AccessLevel))
		writeJSON(w, http.StatusOK, payload)
	}
}

// verifyRequest corre Verify con el token de la URL y escribe el error si falla.
func verifyRequest(w http.ResponseWriter, r *http.Request, deps HandlerDeps) (VerificationResult, bool) {
	viewer := ViewerInfo{
		IP:        middleware.ClientIP(r),
		UserAgent: middleware.UserAgent(r),
	}

	res, err := deps.Service.Verify(r.Context(), chi.URLParam(r, "token"), viewer)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidTokenFormat):
			http.Error(w, "invalid token format", http.StatusBadRequest)
		case errors.Is(err, ErrNotFound):
			http.Error(w, msgNotFound, http.StatusNotFound)
		case errors.Is(err, ErrExpired):
			http.Error(w, msgExpired, http.StatusBadRequest)
		default:
			deps.Logger.Error("verify token failed", map[string]any{"err": err})
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return VerificationResult{}, false
	}
	return res, true
}

// listActiveHandler godoc
// @Summary      QRs activos
// @Description  Lista los grants no expirados del paciente autenticado, más nuevos primero.
// @Tags         qr
// @Produce      json
// @Success      200  {array}   activeGrantResponse
// @Failure      401  {string}  string
// @Security     BearerAuth
// @Router       /qr/active [get]
func listActiveHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := middleware.PatientID(r.Context())
		if ownerID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := deps.Service.ListActive(r.Context(), ownerID)
		if err != nil {
			deps.Logger.Error("list active grants failed", map[string]any{"owner_id": ownerID, "err": err})
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]activeGrantResponse, 0, len(items))
		for _, g := range items {
			out = append(out, toActiveGrantResponse(g, deps.Service.ShareURL(g), deps.Location))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// revokeHandler godoc
// @Summary      Revoca un QR
// @Tags         qr
// @Produce      json
// @Param        grantID  path      string  true  "ID del grant"
// @Success      200      {object}  statusResponse
// @Failure      401      {string}  string
// @Failure      404      {string}  string
// @Security     BearerAuth
// @Router       /qr/revoke/{grantID} [delete]
func revokeHandler(deps HandlerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := middleware.PatientID(r.Context())
		if ownerID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		err := deps.Service.Revoke(r.Context(), chi.URLParam(r, "grantID"), ownerID)
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound):
				http.Error(w, "grant not found", http.StatusNotFound)
			case errors.Is(err, ErrUnauthenticated):
				http.Error(w, "unauthorized", http.StatusUnauthorized)
			default:
				deps.Logger.Error("revoke grant failed", map[string]any{"owner_id": ownerID, "err": err})
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, statusResponse{Status: "revoked"})
	}
}

func toActiveGrantResponse(g Grant, shareURL string, loc *time.Location) activeGrantResponse {
	var viewed *time.Time
	if g.LastViewedAt != nil {
		t := g.LastViewedAt.In(loc)
		viewed = &t
	}
	return activeGrantResponse{
		GrantID:     g.ID,
		AccessLevel: string(g.AccessLevel),
		Token:       g.Token,
		ShareURL:    shareURL,
		CreatedAt:   g.IssuedAt.In(loc),
		ExpiresAt:   g.ExpiresAt.In(loc),
		ViewedAt:    viewed,
		IsViewed:    g.Viewed(),
		ViewCount:   g.ViewCount,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
