package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"todaytasks/api/internal/config"
	"todaytasks/api/internal/store"
	"todaytasks/api/internal/visitor"
)

const firefoxUA = "Mozilla/5.0 (X11; Linux x86_64; rv:126.0) Gecko/20100101 Firefox/126.0"

type visitorsFixture struct {
	handler http.Handler
	now     time.Time
	svc     *Service
}

func newVisitorsFixture(t *testing.T, cfg config.Config) *visitorsFixture {
	t.Helper()
	f := &visitorsFixture{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	f.svc = New(cfg, store.NewMemoryStore(), nil, nil)
	f.svc.now = func() time.Time { return f.now }
	t.Cleanup(f.svc.Close)
	f.handler = NewHTTPServer(f.svc, "*").Handler()
	return f
}

func (f *visitorsFixture) visit(t *testing.T, remoteAddr, body string, headers map[string]string) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/visitors", strings.NewReader(body))
	req.RemoteAddr = remoteAddr
	req.Header.Set("User-Agent", firefoxUA)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	return decodeMap(t, rr)
}

func TestVisitorsMatchWithinWindow(t *testing.T) {
	f := newVisitorsFixture(t, config.Default())
	body := `{"screenWidth":1920,"screenHeight":1080,"language":"en-GB"}`

	first := f.visit(t, "203.0.113.7:51000", body, nil)
	if first["success"] != true || first["isNewVisitor"] != true {
		t.Fatalf("unexpected first response %v", first)
	}
	id, _ := first["visitorId"].(string)
	if !strings.HasPrefix(id, "v_") {
		t.Fatalf("unexpected visitor id %q", id)
	}

	f.now = f.now.Add(10 * time.Minute)
	second := f.visit(t, "203.0.113.7:51999", body, nil)
	if second["visitorId"] != id || second["isNewVisitor"] != false {
		t.Fatalf("expected returning visitor %s, got %v", id, second)
	}

	f.now = f.now.Add(49 * time.Hour)
	third := f.visit(t, "203.0.113.7:52000", body, nil)
	if third["visitorId"] == id || third["isNewVisitor"] != true {
		t.Fatalf("expected a new visitor after the window, got %v", third)
	}
}

func TestVisitorsFastPathAndLenientBody(t *testing.T) {
	f := newVisitorsFixture(t, config.Default())

	known := f.visit(t, "198.51.100.2:4000", `{"visitorId":"v_saved"}`, nil)
	if known["visitorId"] != "v_saved" || known["isNewVisitor"] != false {
		t.Fatalf("unexpected fast path response %v", known)
	}

	broken := f.visit(t, "198.51.100.3:4000", `{not json`, map[string]string{"Referer": "https://example.com/"})
	if broken["success"] != true || broken["isNewVisitor"] != true {
		t.Fatalf("broken body should still record a visit, got %v", broken)
	}

	rr := serve(f.handler, http.MethodGet, "/api/visitors", "")
	var visits []visitor.Visit
	if err := json.Unmarshal(rr.Body.Bytes(), &visits); err != nil {
		t.Fatalf("parse visits: %v", err)
	}
	if len(visits) != 2 {
		t.Fatalf("expected 2 visits, got %d", len(visits))
	}
	if visits[1].Referer != "https://example.com/" || visits[1].IP != "198.51.100.3" || visits[1].UserAgent != firefoxUA {
		t.Fatalf("unexpected request metadata %+v", visits[1])
	}
}

func TestVisitorsForwardedForRequiresTrustProxy(t *testing.T) {
	cfg := config.Default()
	f := newVisitorsFixture(t, cfg)
	f.visit(t, "10.0.0.1:80", `{}`, map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"})

	cfg.TrustProxy = true
	trusted := newVisitorsFixture(t, cfg)
	trusted.visit(t, "10.0.0.1:80", `{}`, map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"})

	for name, fx := range map[string]*visitorsFixture{"10.0.0.1": f, "203.0.113.9": trusted} {
		visits, err := fx.svc.ListVisits(t.Context())
		if err != nil {
			t.Fatalf("ListVisits() error = %v", err)
		}
		if len(visits) != 1 || visits[0].IP != name {
			t.Fatalf("expected ip %s, got %+v", name, visits)
		}
	}
}

func TestVisitorsLogCapFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.VisitorLogCap = 3
	f := newVisitorsFixture(t, cfg)
	for i := 0; i < 5; i++ {
		f.visit(t, "203.0.113.7:1", `{"visitorId":"v_x"}`, nil)
	}

	visits, err := f.svc.ListVisits(t.Context())
	if err != nil {
		t.Fatalf("ListVisits() error = %v", err)
	}
	if len(visits) != 3 {
		t.Fatalf("expected 3 visits, got %d", len(visits))
	}
}

func TestVisitorsStats(t *testing.T) {
	f := newVisitorsFixture(t, config.Default())
	f.visit(t, "203.0.113.7:1", `{"screenWidth":1920,"screenHeight":1080}`, nil)
	f.now = f.now.Add(time.Minute)
	f.visit(t, "203.0.113.7:1", `{"screenWidth":1920,"screenHeight":1080}`, nil)
	f.visit(t, "203.0.113.8:1", `{"touchSupport":true}`, nil)

	rr := serve(f.handler, http.MethodGet, "/api/visitors/stats", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var report visitor.Report
	if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
		t.Fatalf("parse report: %v", err)
	}
	if report.TotalVisits != 3 || report.UniqueVisitors != 2 || report.UniqueIPs != 2 || report.MobileVisits != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(report.Visitors) != 2 || report.Visitors[0].VisitCount != 2 || report.Visitors[0].Screen != "1920x1080" {
		t.Fatalf("unexpected visitor summaries %+v", report.Visitors)
	}
}

func TestSettingsRoutes(t *testing.T) {
	handler := newTodosTestServer(t, store.NewMemoryStore(), nil)

	rr := serve(handler, http.MethodGet, "/api/settings", "")
	payload := decodeMap(t, rr)
	if payload["title"] != "TODAY'S TASKS" || payload["accentColor"] != "#2563EB" {
		t.Fatalf("unexpected defaults %v", payload)
	}

	rr = serve(handler, http.MethodPost, "/api/settings", `{"accentColor":"#DC2626","extra":1}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	payload = decodeMap(t, rr)
	saved, _ := payload["settings"].(map[string]any)
	if payload["success"] != true || saved["accentColor"] != "#DC2626" || saved["title"] != "TODAY'S TASKS" {
		t.Fatalf("unexpected save response %v", payload)
	}
	if _, ok := saved["extra"]; ok {
		t.Fatal("unknown keys must be dropped")
	}

	rr = serve(handler, http.MethodPost, "/api/settings", `[1]`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if payload := decodeMap(t, rr); payload["error"] != "Invalid JSON data" {
		t.Fatalf("unexpected error payload %v", payload)
	}
}
