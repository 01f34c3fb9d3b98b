package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	mem "patient-health-qr/internal/adapters/storage/memory"
	"patient-health-qr/internal/domain/emergencyinfo"
	"patient-health-qr/internal/domain/healthrecords"
	"patient-health-qr/internal/domain/patients"
	"patient-health-qr/internal/router"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type generated struct {
	GrantID     string    `json:"grant_id"`
	Token       string    `json:"token"`
	ShareURL    string    `json:"share_url"`
	AccessLevel string    `json:"access_level"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
}

type activeGrant struct {
	GrantID   string     `json:"grant_id"`
	ViewedAt  *time.Time `json:"viewed_at"`
	IsViewed  bool       `json:"is_viewed"`
	ViewCount int        `json:"view_count"`
}

func newServer(t *testing.T, rate int) (*httptest.Server, *testClock) {
	t.Helper()
	ctx := context.Background()
	clock := &testClock{t: time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)}

	pats := mem.NewPatientsRepo()
	if err := pats.Save(ctx, patients.Profile{
		ID:          "patient-1",
		FirstName:   "Maria",
		LastName:    "Santos",
		DateOfBirth: time.Date(1988, 4, 2, 0, 0, 0, 0, time.UTC),
		BloodType:   "B+",
	}); err != nil {
		t.Fatalf("seed patient: %v", err)
	}

	info := mem.NewEmergencyInfoRepo()
	if err := info.Save(ctx, emergencyinfo.Info{
		PatientID:          "patient-1",
		ContactName:        "Jose Santos",
		ContactPhone:       "+63 900 000 0000",
		CriticalAllergies:  `["Penicillin"]`,
		CurrentMedications: `["Salbutamol"]`,
		ChronicConditions:  `["Asthma"]`,
	}); err != nil {
		t.Fatalf("seed emergency info: %v", err)
	}

	recs := mem.NewHealthRecordsRepo()
	if err := recs.Save(ctx, healthrecords.Record{
		ID:        "rec-1",
		PatientID: "patient-1",
		Title:     "CBC",
		Category:  healthrecords.CategoryLabResult,
		Content:   strings.Repeat("n", 260),
		IsActive:  true,
		CreatedAt: clock.Now().Add(-48 * time.Hour),
	}); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	ts := httptest.NewServer(router.NewRouter(router.Options{
		AuthVerifier:  nil,
		Patients:      pats,
		EmergencyInfo: info,
		Records:       recs,
		BaseURL:       "https://app.example.com",
		Clock:         clock.Now,
		RatePerMinute: rate,
	}))
	t.Cleanup(ts.Close)
	return ts, clock
}

func TestHTTP_EndToEnd_QRFlow(t *testing.T) {
	ts, _ := newServer(t, 100)

	// 1) Paciente genera un QR de emergencia
	g := generate(t, ts.URL, "patient-1", map[string]any{"access_level": "emergency", "duration_hours": 2})
	if g.AccessLevel != "emergency" || len(g.Token) != 43 {
		t.Fatalf("unexpected grant: %+v", g)
	}
	if g.ShareURL != "https://app.example.com/view/emergency/"+g.Token {
		t.Fatalf("unexpected share url: %s", g.ShareURL)
	}
	if got := g.ExpiresAt.Sub(g.CreatedAt); got != 2*time.Hour {
		t.Fatalf("expected 2h validity, got %s", got)
	}

	// 2) Quien escanea verifica (sin auth)
	{
		st, body := doReq(t, ts.URL, "GET", "/qr/verify/"+g.Token, "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 verify, got %d body=%s", st, string(body))
		}
		var v map[string]any
		mustJSON(t, body, &v)
		if v["is_valid"] != true || v["owner_display_name"] != "Maria Santos" || v["view_count"] != float64(1) {
			t.Fatalf("unexpected verification: %v", v)
		}
	}

	// 3) Datos del nivel correcto
	{
		st, body := doReq(t, ts.URL, "GET", "/qr/data/"+g.Token+"/emergency", "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 data, got %d body=%s", st, string(body))
		}
		var p map[string]json.RawMessage
		mustJSON(t, body, &p)
		for _, k := range []string{"patient_info", "emergency_contact", "critical_allergies", "current_medications"} {
			if _, ok := p[k]; !ok {
				t.Fatalf("missing %s in emergency payload: %s", k, string(body))
			}
		}
		for _, k := range []string{"recent_health_records", "all_health_records", "chronic_conditions"} {
			if _, ok := p[k]; ok {
				t.Fatalf("emergency payload leaks %s: %s", k, string(body))
			}
		}
	}

	// 4) Pedir un nivel distinto al concedido
	{
		st, body := doReq(t, ts.URL, "GET", "/qr/data/"+g.Token+"/full", "", nil)
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 level mismatch, got %d body=%s", st, string(body))
		}
	}

	// 5) Nivel inválido en la URL
	{
		st, _ := doReq(t, ts.URL, "GET", "/qr/data/"+g.Token+"/admin", "", nil)
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 invalid level, got %d", st)
		}
	}

	// 6) El dueño ve su QR activo con las vistas contadas
	{
		items := listActive(t, ts.URL, "patient-1")
		if len(items) != 1 || items[0].GrantID != g.GrantID {
			t.Fatalf("unexpected active list: %+v", items)
		}
		if !items[0].IsViewed || items[0].ViewedAt == nil || items[0].ViewCount != 3 {
			t.Fatalf("expected 3 audited views, got %+v", items[0])
		}
	}

	// 7) Otro paciente no puede revocarlo
	{
		st, _ := doReq(t, ts.URL, "DELETE", "/qr/revoke/"+g.GrantID, "patient-2", nil)
		if st != http.StatusNotFound {
			t.Fatalf("expected 404 revoking foreign grant, got %d", st)
		}
	}

	// 8) El dueño revoca (dos veces: idempotente)
	for i := 0; i < 2; i++ {
		st, body := doReq(t, ts.URL, "DELETE", "/qr/revoke/"+g.GrantID, "patient-1", nil)
		if st != http.StatusOK || !strings.Contains(string(body), `"revoked"`) {
			t.Fatalf("expected 200 revoke, got %d body=%s", st, string(body))
		}
	}

	// 9) Después de revocar: expirado y fuera de la lista
	{
		st, body := doReq(t, ts.URL, "GET", "/qr/verify/"+g.Token, "", nil)
		if st != http.StatusBadRequest || !strings.Contains(string(body), "QR code has expired") {
			t.Fatalf("expected 400 expired after revoke, got %d body=%s", st, string(body))
		}
		if items := listActive(t, ts.URL, "patient-1"); len(items) != 0 {
			t.Fatalf("expected no active grants, got %+v", items)
		}
	}
}

func TestHTTP_TieredPayloads(t *testing.T) {
	ts, _ := newServer(t, 100)

	basic := generate(t, ts.URL, "patient-1", map[string]any{"access_level": "basic", "duration_hours": 1})
	full := generate(t, ts.URL, "patient-1", map[string]any{"access_level": "FULL", "duration_hours": 1})

	type record struct {
		Content string `json:"content"`
	}
	type payload struct {
		Recent []record  `json:"recent_health_records"`
		All    *[]record `json:"all_health_records"`
		Cond   *[]string `json:"chronic_conditions"`
	}

	st, body := doReq(t, ts.URL, "GET", "/qr/data/"+basic.Token+"/basic", "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 basic data, got %d body=%s", st, string(body))
	}
	var b payload
	mustJSON(t, body, &b)
	if len(b.Recent) != 1 || b.Recent[0].Content != strings.Repeat("n", 200)+"..." {
		t.Fatalf("expected truncated recent record, got %+v", b.Recent)
	}
	if b.All != nil || b.Cond != nil {
		t.Fatalf("basic payload leaks full fields: %s", string(body))
	}

	st, body = doReq(t, ts.URL, "GET", "/qr/data/"+full.Token+"/full", "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 full data, got %d body=%s", st, string(body))
	}
	var f payload
	mustJSON(t, body, &f)
	if len(f.Recent) != 1 || len(f.Recent[0].Content) != 260 {
		t.Fatalf("expected untruncated recent record, got %+v", f.Recent)
	}
	if f.All == nil || len(*f.All) != 1 || f.Cond == nil || (*f.Cond)[0] != "Asthma" {
		t.Fatalf("unexpected full payload: %s", string(body))
	}
}

func TestHTTP_GenerateValidation(t *testing.T) {
	ts, _ := newServer(t, 100)

	cases := []struct {
		name string
		body any
		user string
		want int
	}{
		{"no identity", map[string]any{"access_level": "basic"}, "", http.StatusUnauthorized},
		{"bad level", map[string]any{"access_level": "admin"}, "patient-1", http.StatusBadRequest},
		{"too short", map[string]any{"access_level": "basic", "duration_hours": 0.08}, "patient-1", http.StatusBadRequest},
		{"too long", map[string]any{"access_level": "basic", "duration_hours": 24.5}, "patient-1", http.StatusBadRequest},
		{"bad json", "{", "patient-1", http.StatusBadRequest},
		{"shortest allowed", map[string]any{"access_level": "basic", "duration_hours": 0.083}, "patient-1", http.StatusCreated},
		{"longest allowed", map[string]any{"access_level": "basic", "duration_hours": 24}, "patient-1", http.StatusCreated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, body := doReq(t, ts.URL, "POST", "/qr/generate", tc.user, tc.body)
			if st != tc.want {
				t.Fatalf("expected %d, got %d body=%s", tc.want, st, string(body))
			}
		})
	}
}

func TestHTTP_DefaultDuration(t *testing.T) {
	ts, _ := newServer(t, 100)

	g := generate(t, ts.URL, "patient-1", map[string]any{"access_level": "basic"})
	if got := g.ExpiresAt.Sub(g.CreatedAt); got != 2*time.Hour {
		t.Fatalf("expected default 2h, got %s", got)
	}
}

func TestHTTP_OwnerRoutesRequireIdentity(t *testing.T) {
	ts, _ := newServer(t, 100)

	if st, _ := doReq(t, ts.URL, "GET", "/qr/active", "", nil); st != http.StatusUnauthorized {
		t.Fatalf("expected 401 on active list, got %d", st)
	}
	if st, _ := doReq(t, ts.URL, "DELETE", "/qr/revoke/whatever", "", nil); st != http.StatusUnauthorized {
		t.Fatalf("expected 401 on revoke, got %d", st)
	}
}

func TestHTTP_ShortGrantExpires(t *testing.T) {
	ts, clock := newServer(t, 100)

	g := generate(t, ts.URL, "patient-1", map[string]any{"access_level": "emergency", "duration_hours": 0.083})
	if st, _ := doReq(t, ts.URL, "GET", "/qr/verify/"+g.Token, "", nil); st != http.StatusOK {
		t.Fatalf("expected 200 before expiry, got %d", st)
	}

	clock.Advance(6 * time.Minute)
	st, body := doReq(t, ts.URL, "GET", "/qr/data/"+g.Token+"/emergency", "", nil)
	if st != http.StatusBadRequest || !strings.Contains(string(body), "QR code has expired") {
		t.Fatalf("expected 400 expired, got %d body=%s", st, string(body))
	}
}

func TestHTTP_UnknownAndMalformedTokens(t *testing.T) {
	ts, _ := newServer(t, 100)

	st, body := doReq(t, ts.URL, "GET", "/qr/verify/AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", "", nil)
	if st != http.StatusNotFound || !strings.Contains(string(body), "invalid or expired QR code") {
		t.Fatalf("expected 404 generic message, got %d body=%s", st, string(body))
	}

	st, _ = doReq(t, ts.URL, "GET", "/qr/verify/~~~", "", nil)
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 invalid format, got %d", st)
	}
}

func TestHTTP_PublicRoutesAreRateLimited(t *testing.T) {
	ts, _ := newServer(t, 2)

	for i := 0; i < 2; i++ {
		if st, _ := doReq(t, ts.URL, "GET", "/qr/verify/unknown-token", "", nil); st != http.StatusNotFound {
			t.Fatalf("expected 404 within budget, got %d", st)
		}
	}
	if st, _ := doReq(t, ts.URL, "GET", "/qr/verify/unknown-token", "", nil); st != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over budget, got %d", st)
	}

	// rutas del dueño no consumen el presupuesto público
	if st, _ := doReq(t, ts.URL, "GET", "/qr/active", "patient-1", nil); st != http.StatusOK {
		t.Fatalf("expected 200 on owner route, got %d", st)
	}
}

func TestHTTP_RateLimitIgnoresForwardedHeaders(t *testing.T) {
	h := router.NewRouter(router.Options{RatePerMinute: 2})

	statuses := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/qr/verify/unknown-token", nil)
		req.RemoteAddr = "198.51.100.20:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		req.Header.Set("X-Real-IP", fmt.Sprintf("192.0.2.%d", i+1))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	want := []int{
		http.StatusNotFound, http.StatusNotFound,
		http.StatusTooManyRequests, http.StatusTooManyRequests, http.StatusTooManyRequests,
	}
	if fmt.Sprint(statuses) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, statuses)
	}
}

func TestHTTP_RateLimitHonoursTrustedProxy(t *testing.T) {
	h := router.NewRouter(router.Options{RatePerMinute: 1, TrustProxyHeaders: true})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/qr/verify/unknown-token", nil)
		req.RemoteAddr = "10.0.0.1:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("client %d behind trusted proxy: expected 404, got %d", i, rec.Code)
		}
	}
}

func TestHTTP_HealthAndMetrics(t *testing.T) {
	ts, _ := newServer(t, 100)
	generate(t, ts.URL, "patient-1", map[string]any{"access_level": "basic", "duration_hours": 1})

	if st, body := doReq(t, ts.URL, "GET", "/health", "", nil); st != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected health: %d %s", st, string(body))
	}

	st, body := doReq(t, ts.URL, "GET", "/metrics", "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 metrics, got %d", st)
	}
	if !strings.Contains(string(body), `qr_grants_issued_total{access_level="basic"} 1`) {
		t.Fatalf("issued counter missing from metrics output")
	}
}

// -------------------------
// helpers
// -------------------------

func generate(t *testing.T, baseURL, userID string, payload map[string]any) generated {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/qr/generate", userID, payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 generate, got %d body=%s", st, string(body))
	}
	var g generated
	mustJSON(t, body, &g)
	if g.GrantID == "" || g.Token == "" {
		t.Fatalf("generate response missing fields: %s", string(body))
	}
	return g
}

func listActive(t *testing.T, baseURL, userID string) []activeGrant {
	t.Helper()

	st, body := doReq(t, baseURL, "GET", "/qr/active", userID, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 active list, got %d body=%s", st, string(body))
	}
	var out []activeGrant
	mustJSON(t, body, &out)
	return out
}

func mustJSON(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("invalid json %q: %v", string(body), err)
	}
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
