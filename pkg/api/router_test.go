package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"homesync/pkg/api/types"
	"homesync/pkg/clock"
	"homesync/pkg/device/schema"
	"homesync/pkg/metrics"
	"homesync/pkg/store"
)

func newTestRouter(t *testing.T) (*Router, *store.SQLite) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "homesync.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}

	clk := clock.NewSimulated(time.Date(2026, time.August, 3, 12, 0, 0, 0, time.UTC))
	return NewRouter(s, schema.NewValidator(), clk, metrics.New()), s
}

func doJSON(t *testing.T, r *Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)
	return w
}

const airconJSON = `{
	"applianceName": "Air-con",
	"roomName": "Bedroom",
	"deviceType": "Socket 2",
	"relay": "relay4",
	"icon": 57855,
	"kwh": 1.5,
	"startTime": "6:0",
	"endTime": "12:0",
	"days": ["Mon"]
}`

func TestDeviceEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	// Create
	w := doJSON(t, r, http.MethodPost, "/api/v1/devices", airconJSON)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", w.Code, w.Body.String())
	}
	var created types.DeviceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.Device.ID == "" {
		t.Fatal("created device has no id")
	}
	if created.Device.StartTime != "6:0" {
		t.Errorf("startTime = %q", created.Device.StartTime)
	}

	// Get
	w = doJSON(t, r, http.MethodGet, "/api/v1/devices/"+created.Device.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: status %d", w.Code)
	}

	// List
	w = doJSON(t, r, http.MethodGet, "/api/v1/devices", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: status %d", w.Code)
	}
	var list types.ListDevicesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Count != 1 {
		t.Errorf("list count = %d", list.Count)
	}

	// Update (replace whole record)
	updated := strings.Replace(airconJSON, `"days": ["Mon"]`, `"days": ["Fri"]`, 1)
	w = doJSON(t, r, http.MethodPut, "/api/v1/devices/"+created.Device.ID, updated)
	if w.Code != http.StatusOK {
		t.Fatalf("update: status %d, body %s", w.Code, w.Body.String())
	}

	// Delete
	w = doJSON(t, r, http.MethodDelete, "/api/v1/devices/"+created.Device.ID, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/api/v1/devices/"+created.Device.ID, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status %d", w.Code)
	}
}

func TestCreateDevice_RejectsInvalidRecord(t *testing.T) {
	r, _ := newTestRouter(t)

	bad := strings.Replace(airconJSON, `"6:0"`, `"25:0"`, 1)
	w := doJSON(t, r, http.MethodPost, "/api/v1/devices", bad)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400; body %s", w.Code, w.Body.String())
	}
	var resp types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error != "invalid_record" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestUpdateDevice_EmitsScheduleEdit(t *testing.T) {
	r, s := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/devices", airconJSON)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d", w.Code)
	}
	var created types.DeviceResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	edits, cancel := s.SubscribeToScheduleEdits()
	defer cancel()

	updated := strings.Replace(airconJSON, `"days": ["Mon"]`, `"days": ["Sat"]`, 1)
	if w := doJSON(t, r, http.MethodPut, "/api/v1/devices/"+created.Device.ID, updated); w.Code != http.StatusOK {
		t.Fatalf("update: status %d", w.Code)
	}

	select {
	case edit := <-edits:
		if edit.DeviceID != created.Device.ID {
			t.Errorf("edit device = %q", edit.DeviceID)
		}
	case <-time.After(time.Second):
		t.Fatal("schedule edit not emitted for API update")
	}
}

func TestRelayEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	// Unknown relay
	w := doJSON(t, r, http.MethodGet, "/api/v1/relays/relay9", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown relay: status %d", w.Code)
	}

	// Manual override creates the state with a manual source.
	w = doJSON(t, r, http.MethodPost, "/api/v1/relays/relay9/state", `{"state": "ON"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("override: status %d, body %s", w.Code, w.Body.String())
	}
	var resp types.RelayResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Relay.State != "ON" || resp.Relay.Source != "manual" {
		t.Errorf("override result = %+v", resp.Relay)
	}

	// Bad state value
	w = doJSON(t, r, http.MethodPost, "/api/v1/relays/relay9/state", `{"state": "maybe"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad override: status %d", w.Code)
	}

	// Listing
	w = doJSON(t, r, http.MethodGet, "/api/v1/relays", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list relays: status %d", w.Code)
	}
	var list types.ListRelaysResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Count != 1 || list.Relays[0].Relay != "relay9" {
		t.Errorf("relay listing = %+v", list)
	}
}

func TestCORSPreflight(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/devices", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight: status %d", w.Code)
	}
	allow := w.Header().Get("Access-Control-Allow-Methods")
	if !strings.Contains(allow, http.MethodPut) {
		t.Errorf("allow-methods %q is missing PUT", allow)
	}
	if strings.Contains(allow, http.MethodPatch) {
		t.Errorf("allow-methods %q permits PATCH, which no route uses", allow)
	}
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health: status %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: status %d", w.Code)
	}
}
