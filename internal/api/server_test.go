package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/setevik/cranewatch/internal/analysis"
	"github.com/setevik/cranewatch/internal/audit"
	"github.com/setevik/cranewatch/internal/business"
	"github.com/setevik/cranewatch/internal/config"
	"github.com/setevik/cranewatch/internal/event"
	"github.com/setevik/cranewatch/internal/inventory"
	"github.com/setevik/cranewatch/internal/parts"
	"github.com/setevik/cranewatch/internal/store"
	"github.com/setevik/cranewatch/internal/telemetry"
)

func testApp(t *testing.T) (*fiber.App, *telemetry.Simulator) {
	t.Helper()

	cfg := config.Default()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	sim := telemetry.NewSimulator(cfg.Simulator.Interval.Duration, nil)
	sim.Tick()

	// Empty engine URL: every analysis uses the heuristic fallback.
	eng := analysis.NewEngine("", cfg.Engine.Timeout.Duration)
	inv := inventory.New(cfg.Inventory.InitialStock)
	biz := business.NewView(
		cfg.Business.MaintenanceSpend,
		cfg.Business.MaintenanceBudget,
		cfg.Business.AvoidedDowntimeSavings,
		cfg.Business.ActiveAssets,
		cfg.Business.TotalAssets,
	)

	app := fiber.New()
	New(cfg, db, sim, eng, inv, biz).Register(app)
	return app, sim
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (int, []byte) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response: %v", err)
	}
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decoding response %s: %v", data, err)
	}
	return v
}

func TestHealth(t *testing.T) {
	app, _ := testApp(t)

	status, body := doJSON(t, app, http.MethodGet, "/health", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q, want ok", body)
	}
}

func TestGetTelemetry(t *testing.T) {
	app, sim := testApp(t)

	status, body := doJSON(t, app, http.MethodGet, "/api/telemetry", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}

	snap := decode[telemetry.Snapshot](t, body)
	if snap.Vibration != sim.Current().Vibration {
		t.Errorf("vibration = %v, want %v", snap.Vibration, sim.Current().Vibration)
	}
	if snap.LoadCycles < 10000 {
		t.Errorf("load cycles = %d", snap.LoadCycles)
	}
	if snap.MainBearingWear < 0.05 {
		t.Errorf("wear missing from combined snapshot: %v", snap.MainBearingWear)
	}
}

func TestGetHistory(t *testing.T) {
	app, sim := testApp(t)
	sim.Tick()
	sim.Tick()

	status, body := doJSON(t, app, http.MethodGet, "/api/history", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}

	hist := decode[[]telemetry.Snapshot](t, body)
	if len(hist) != 3 {
		t.Fatalf("history len = %d, want 3", len(hist))
	}
	for i := 1; i < len(hist); i++ {
		if hist[i].Timestamp.Before(hist[i-1].Timestamp) {
			t.Fatal("history not oldest-first")
		}
	}
}

func TestAnalyzeEndToEnd(t *testing.T) {
	app, _ := testApp(t)

	status, body := doJSON(t, app, http.MethodPost, "/api/analyze",
		map[string]any{"vibration_mm_s": 4.5, "temperature_c": 60})
	if status != http.StatusCreated {
		t.Fatalf("analyze status = %d, body %s", status, body)
	}

	ev := decode[event.Event](t, body)
	if ev.ID == "" {
		t.Fatal("event has no id")
	}
	if ev.Type != analysis.TypeWarning {
		t.Errorf("type = %q, want Warning from fallback", ev.Type)
	}
	if ev.Severity != 0.5 {
		t.Errorf("severity = %v, want 0.5", ev.Severity)
	}
	if ev.UrgencyScore != 5 {
		t.Errorf("urgency = %d, want 5", ev.UrgencyScore)
	}
	if ev.Status != event.StatusActive {
		t.Errorf("status = %q, want active", ev.Status)
	}
	if ev.ComponentID != "CRANE-01" {
		t.Errorf("component = %q", ev.ComponentID)
	}
	if ev.RawTelemetry.Vibration != 4.5 || ev.RawTelemetry.Temperature != 60 {
		t.Errorf("raw telemetry not stored verbatim: %+v", ev.RawTelemetry)
	}

	// The created event is listed as active.
	status, body = doJSON(t, app, http.MethodGet, "/api/events?status=active", nil)
	if status != http.StatusOK {
		t.Fatalf("events status = %d", status)
	}
	events := decode[[]event.Event](t, body)
	if len(events) != 1 || events[0].ID != ev.ID {
		t.Fatalf("active events = %d", len(events))
	}

	// Resolve it.
	status, body = doJSON(t, app, http.MethodPost, "/api/events/"+ev.ID+"/resolve",
		map[string]string{"notes": "Replaced bearing"})
	if status != http.StatusOK {
		t.Fatalf("resolve status = %d, body %s", status, body)
	}

	status, body = doJSON(t, app, http.MethodGet, "/api/events", nil)
	if status != http.StatusOK {
		t.Fatal("listing events after resolve")
	}
	events = decode[[]event.Event](t, body)
	if events[0].Status != event.StatusResolved {
		t.Errorf("status after resolve = %q", events[0].Status)
	}
	if events[0].ResolutionNotes != "Replaced bearing" {
		t.Errorf("notes = %q", events[0].ResolutionNotes)
	}

	// Both workflow steps left their audit trail, newest first.
	status, body = doJSON(t, app, http.MethodGet, "/api/audit_log", nil)
	if status != http.StatusOK {
		t.Fatal("listing audit log")
	}
	entries := decode[[]audit.Entry](t, body)
	if len(entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(entries))
	}
	if entries[0].Action != audit.ActionResolvedIssue || entries[0].Details != "Replaced bearing" {
		t.Errorf("newest audit entry = %+v", entries[0])
	}
	if entries[1].Action != audit.ActionDiagnosticScan || entries[1].Details != "Detected: Warning" {
		t.Errorf("scan audit entry = %+v", entries[1])
	}
	if entries[1].EventID == nil || *entries[1].EventID != ev.ID {
		t.Errorf("scan entry not linked to event")
	}
}

func TestAnalyzeDefaultsToCurrentSnapshot(t *testing.T) {
	app, sim := testApp(t)

	status, body := doJSON(t, app, http.MethodPost, "/api/analyze", nil)
	if status != http.StatusCreated {
		t.Fatalf("status = %d, body %s", status, body)
	}

	ev := decode[event.Event](t, body)
	if ev.RawTelemetry.LoadCycles != sim.Current().LoadCycles {
		t.Errorf("raw telemetry not taken from simulator: %+v", ev.RawTelemetry)
	}
	if ev.RawTelemetry.Timestamp.IsZero() {
		t.Error("snapshot timestamp missing")
	}
}

func TestAnalyzeEmptyObjectDefaultsToCurrent(t *testing.T) {
	app, sim := testApp(t)

	status, body := doJSON(t, app, http.MethodPost, "/api/analyze", map[string]any{})
	if status != http.StatusCreated {
		t.Fatalf("status = %d, body %s", status, body)
	}

	ev := decode[event.Event](t, body)
	if ev.RawTelemetry.LoadCycles != sim.Current().LoadCycles {
		t.Errorf("empty object should fall back to current snapshot")
	}
}

func TestResolveUnknownEventSucceeds(t *testing.T) {
	app, _ := testApp(t)

	status, body := doJSON(t, app, http.MethodPost, "/api/events/no-such-id/resolve",
		map[string]string{"notes": "fixed"})
	if status != http.StatusOK {
		t.Fatalf("status = %d, body %s", status, body)
	}
}

func TestResolveDefaultNotes(t *testing.T) {
	app, _ := testApp(t)

	status, body := doJSON(t, app, http.MethodPost, "/api/analyze", nil)
	if status != http.StatusCreated {
		t.Fatal("creating event")
	}
	ev := decode[event.Event](t, body)

	status, _ = doJSON(t, app, http.MethodPost, "/api/events/"+ev.ID+"/resolve", nil)
	if status != http.StatusOK {
		t.Fatalf("resolve status = %d", status)
	}

	_, body = doJSON(t, app, http.MethodGet, "/api/events", nil)
	events := decode[[]event.Event](t, body)
	if events[0].ResolutionNotes != "Resolved via Dashboard" {
		t.Errorf("notes = %q, want default", events[0].ResolutionNotes)
	}
}

func TestVerifyFix(t *testing.T) {
	app, _ := testApp(t)

	status, _ := doJSON(t, app, http.MethodPost, "/api/verify_fix",
		map[string]any{"event_id": "ev-1", "checks": []string{"Run at 25% load", "Re-measure vibration"}})
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}

	_, body := doJSON(t, app, http.MethodGet, "/api/audit_log", nil)
	entries := decode[[]audit.Entry](t, body)
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d", len(entries))
	}
	if entries[0].Action != audit.ActionProtocolVerification {
		t.Errorf("action = %q", entries[0].Action)
	}
	if entries[0].Details != "Verified: Run at 25% load, Re-measure vibration" {
		t.Errorf("details = %q", entries[0].Details)
	}
}

func TestDecision(t *testing.T) {
	app, _ := testApp(t)

	_, body := doJSON(t, app, http.MethodPost, "/api/analyze", nil)
	ev := decode[event.Event](t, body)

	status, _ := doJSON(t, app, http.MethodPost, "/api/decisions",
		map[string]string{"role": "Owner", "decision": "Stop Crane", "event_id": ev.ID})
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}

	_, body = doJSON(t, app, http.MethodGet, "/api/events", nil)
	events := decode[[]event.Event](t, body)
	if events[0].OwnerDecision == nil || *events[0].OwnerDecision != "Stop Crane" {
		t.Errorf("owner decision = %v", events[0].OwnerDecision)
	}

	_, body = doJSON(t, app, http.MethodGet, "/api/audit_log?role=Owner", nil)
	entries := decode[[]audit.Entry](t, body)
	if len(entries) != 1 || entries[0].Action != audit.ActionExecutiveDecision {
		t.Errorf("owner audit entries = %+v", entries)
	}
	if entries[0].Details != "Stop Crane" {
		t.Errorf("details = %q", entries[0].Details)
	}
}

func TestLogActionDefaults(t *testing.T) {
	app, _ := testApp(t)

	status, _ := doJSON(t, app, http.MethodPost, "/api/log_action", map[string]string{})
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}

	_, body := doJSON(t, app, http.MethodGet, "/api/audit_log", nil)
	entries := decode[[]audit.Entry](t, body)
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d", len(entries))
	}
	if entries[0].Role != audit.RoleSystem || entries[0].Action != "Activity" {
		t.Errorf("entry = %+v", entries[0])
	}
}

func TestInventoryAndPartsFlow(t *testing.T) {
	app, _ := testApp(t)

	status, body := doJSON(t, app, http.MethodGet, "/api/inventory", nil)
	if status != http.StatusOK {
		t.Fatal("inventory status")
	}
	stock := decode[map[string]int](t, body)
	if stock["Hydraulic Filter"] != 12 {
		t.Fatalf("seed stock = %d, want 12", stock["Hydraulic Filter"])
	}

	status, body = doJSON(t, app, http.MethodPost, "/api/parts/request",
		map[string]string{"part": "Hydraulic Filter", "role": "Maintenance Lead"})
	if status != http.StatusCreated {
		t.Fatalf("request status = %d, body %s", status, body)
	}
	created := decode[struct {
		Status string `json:"status"`
		ID     string `json:"id"`
	}](t, body)
	if created.ID == "" {
		t.Fatal("request has no id")
	}

	status, body = doJSON(t, app, http.MethodGet, "/api/parts/requests?status=pending", nil)
	if status != http.StatusOK {
		t.Fatal("listing pending requests")
	}
	pending := decode[[]parts.Request](t, body)
	if len(pending) != 1 || pending[0].ID != created.ID {
		t.Fatalf("pending requests = %d", len(pending))
	}

	status, body = doJSON(t, app, http.MethodPost, "/api/parts/approve/"+created.ID, nil)
	if status != http.StatusOK {
		t.Fatalf("approve status = %d, body %s", status, body)
	}
	approved := decode[struct {
		Status   string `json:"status"`
		NewStock *int   `json:"new_stock"`
	}](t, body)
	if approved.NewStock == nil || *approved.NewStock != 17 {
		t.Fatalf("new_stock = %v, want 17", approved.NewStock)
	}

	_, body = doJSON(t, app, http.MethodGet, "/api/inventory", nil)
	stock = decode[map[string]int](t, body)
	if stock["Hydraulic Filter"] != 17 {
		t.Errorf("stock after approval = %d, want 17", stock["Hydraulic Filter"])
	}

	_, body = doJSON(t, app, http.MethodGet, "/api/parts/requests?status=approved", nil)
	approvedReqs := decode[[]parts.Request](t, body)
	if len(approvedReqs) != 1 || approvedReqs[0].Status != parts.StatusApproved {
		t.Errorf("approved requests = %+v", approvedReqs)
	}

	_, body = doJSON(t, app, http.MethodGet, "/api/audit_log", nil)
	entries := decode[[]audit.Entry](t, body)
	if len(entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(entries))
	}
	if entries[0].Action != audit.ActionApprovedPurchase {
		t.Errorf("newest audit action = %q", entries[0].Action)
	}
	if entries[0].Details != "Approved order for Hydraulic Filter. Stock updated." {
		t.Errorf("approval details = %q", entries[0].Details)
	}
	if entries[1].Action != audit.ActionRequestedPart || entries[1].Details != "Requested restock: Hydraulic Filter" {
		t.Errorf("request audit entry = %+v", entries[1])
	}
}

func TestApproveUnknownRequest(t *testing.T) {
	app, _ := testApp(t)

	status, body := doJSON(t, app, http.MethodPost, "/api/parts/approve/no-such-id", nil)
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
	resp := decode[map[string]string](t, body)
	if resp["error"] != "Request not found" {
		t.Errorf("error = %q", resp["error"])
	}
}

func TestApproveUntrackedPart(t *testing.T) {
	app, _ := testApp(t)

	_, body := doJSON(t, app, http.MethodPost, "/api/parts/request",
		map[string]string{"part": "Flux Capacitor"})
	created := decode[struct {
		ID string `json:"id"`
	}](t, body)

	status, body := doJSON(t, app, http.MethodPost, "/api/parts/approve/"+created.ID, nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want success for untracked part", status)
	}
	approved := decode[struct {
		NewStock *int `json:"new_stock"`
	}](t, body)
	if approved.NewStock != nil {
		t.Errorf("new_stock = %v, want null for untracked part", *approved.NewStock)
	}

	_, body = doJSON(t, app, http.MethodGet, "/api/inventory", nil)
	stock := decode[map[string]int](t, body)
	if len(stock) != 3 {
		t.Errorf("untracked approval changed inventory: %v", stock)
	}
}

func TestPartRequestRequiresPart(t *testing.T) {
	app, _ := testApp(t)

	status, _ := doJSON(t, app, http.MethodPost, "/api/parts/request", map[string]string{"role": "Maintenance Lead"})
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
}

func TestPartRequestDefaultRole(t *testing.T) {
	app, _ := testApp(t)

	status, _ := doJSON(t, app, http.MethodPost, "/api/parts/request",
		map[string]string{"part": "Hoist Motor"})
	if status != http.StatusCreated {
		t.Fatalf("status = %d", status)
	}

	_, body := doJSON(t, app, http.MethodGet, "/api/parts/requests", nil)
	reqs := decode[[]parts.Request](t, body)
	if reqs[0].RequesterRole != audit.RoleMaintenanceLead {
		t.Errorf("requester role = %q, want default", reqs[0].RequesterRole)
	}
}

func TestBusinessMetrics(t *testing.T) {
	app, _ := testApp(t)

	status, body := doJSON(t, app, http.MethodGet, "/api/business/metrics", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}

	m := decode[business.Metrics](t, body)
	if m.UptimePct < 98.0 || m.UptimePct > 99.5 {
		t.Errorf("uptime = %v", m.UptimePct)
	}
	if m.MaintenanceSpend != 12450 || m.MaintenanceBudget != 15000 {
		t.Errorf("spend figures = %+v", m)
	}
}

func TestPrometheusEndpoint(t *testing.T) {
	app, _ := testApp(t)

	status, body := doJSON(t, app, http.MethodGet, "/metrics", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(string(body), "cranewatch_") {
		t.Error("metrics output missing cranewatch collectors")
	}
}
