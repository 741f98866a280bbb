package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/cityops/traffic-light-monitor/internal/api"
	"github.com/cityops/traffic-light-monitor/internal/db"
	"github.com/cityops/traffic-light-monitor/internal/mq"
	"github.com/cityops/traffic-light-monitor/internal/query"
)

type fakeSource struct {
	readings   []db.Reading
	streets    []string
	devices    []int
	lastParams query.Params
	lastStreet string
}

func (f *fakeSource) Readings(ctx context.Context, p query.Params) []db.Reading {
	f.lastParams = p
	if f.readings == nil {
		return []db.Reading{}
	}
	return f.readings
}

func (f *fakeSource) Streets(ctx context.Context) []string {
	if f.streets == nil {
		return []string{}
	}
	return f.streets
}

func (f *fakeSource) DevicesByStreet(ctx context.Context, streetID string) []int {
	f.lastStreet = streetID
	if f.devices == nil {
		return []int{}
	}
	return f.devices
}

type fakeSender struct {
	err      error
	street   string
	deviceID int
	cmd      mq.Command
	calls    int
}

func (f *fakeSender) PublishCommand(ctx context.Context, streetID string, deviceID int, cmd mq.Command) error {
	f.calls++
	f.street = streetID
	f.deviceID = deviceID
	f.cmd = cmd
	return f.err
}

func serve(t *testing.T, source *fakeSource, sender *fakeSender, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	server := api.NewServer(source, sender, zap.NewNop())

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleReadings_ReturnsArray(t *testing.T) {
	source := &fakeSource{readings: []db.Reading{
		{Timestamp: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC), CurrentState: "green", DeviceID: 7},
	}}

	rec := serve(t, source, &fakeSender{}, "GET", "/api/v1/readings?streetId=ST_1&deviceId=7", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var readings []db.Reading
	if err := json.Unmarshal(rec.Body.Bytes(), &readings); err != nil {
		t.Fatalf("Response is not a JSON array: %v", err)
	}
	if len(readings) != 1 || readings[0].CurrentState != "green" {
		t.Errorf("Unexpected response: %v", readings)
	}
	if source.lastParams.StreetID != "ST_1" || source.lastParams.DeviceID != "7" {
		t.Errorf("Filter params not forwarded: %+v", source.lastParams)
	}
}

func TestHandleReadings_ParamAliases(t *testing.T) {
	source := &fakeSource{}

	serve(t, source, &fakeSender{}, "GET", "/api/v1/readings?street=ST_1&device=all&start=2025-01-01&end=2025-01-02", nil)

	p := source.lastParams
	if p.StreetID != "ST_1" || p.DeviceID != "all" || p.StartDate != "2025-01-01" || p.EndDate != "2025-01-02" {
		t.Errorf("Legacy parameter aliases not honored: %+v", p)
	}
}

func TestHandleReadings_EmptyIsArrayNotNull(t *testing.T) {
	rec := serve(t, &fakeSource{}, &fakeSender{}, "GET", "/api/v1/readings", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := bytes.TrimSpace(rec.Body.Bytes())
	if string(body) != "[]" {
		t.Errorf("Expected empty JSON array, got %s", body)
	}
}

func TestHandleStreets(t *testing.T) {
	source := &fakeSource{streets: []string{"ST_1", "ST_2"}}

	rec := serve(t, source, &fakeSender{}, "GET", "/api/v1/streets", nil)

	var streets []string
	if err := json.Unmarshal(rec.Body.Bytes(), &streets); err != nil {
		t.Fatalf("Response is not a JSON array: %v", err)
	}
	if len(streets) != 2 {
		t.Errorf("Expected 2 streets, got %v", streets)
	}
}

func TestHandleDevicesByStreet(t *testing.T) {
	source := &fakeSource{devices: []int{1, 7}}

	rec := serve(t, source, &fakeSender{}, "GET", "/api/v1/streets/ST_1/devices", nil)

	if source.lastStreet != "ST_1" {
		t.Errorf("Expected street ST_1 forwarded, got %q", source.lastStreet)
	}
	var devices []int
	if err := json.Unmarshal(rec.Body.Bytes(), &devices); err != nil {
		t.Fatalf("Response is not a JSON array: %v", err)
	}
	if len(devices) != 2 {
		t.Errorf("Expected 2 devices, got %v", devices)
	}
}

func TestHandleCommand_Force(t *testing.T) {
	sender := &fakeSender{}
	body := []byte(`{"streetId": "ST_1", "force": "ped_green"}`)

	rec := serve(t, &fakeSource{}, sender, "POST", "/api/v1/devices/7/command", body)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if sender.street != "ST_1" || sender.deviceID != 7 {
		t.Errorf("Command routed to wrong device: street=%q device=%d", sender.street, sender.deviceID)
	}
	if sender.cmd.Force != mq.ForcePedGreen || sender.cmd.Buzzer != nil {
		t.Errorf("Unexpected command shape: %+v", sender.cmd)
	}
}

func TestHandleCommand_Buzzer(t *testing.T) {
	sender := &fakeSender{}
	body := []byte(`{"streetId": "ST_1", "buzzer": true}`)

	rec := serve(t, &fakeSource{}, sender, "POST", "/api/v1/devices/7/command", body)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", rec.Code)
	}
	if sender.cmd.Buzzer == nil || !*sender.cmd.Buzzer {
		t.Errorf("Expected buzzer true, got %+v", sender.cmd)
	}
}

func TestHandleCommand_RejectsBadShapes(t *testing.T) {
	for _, body := range []string{
		`{"streetId": "ST_1"}`,
		`{"streetId": "ST_1", "force": "all_red"}`,
		`{"streetId": "ST_1", "force": "ped_green", "buzzer": true}`,
		`{"force": "ped_green"}`,
		`not json`,
	} {
		sender := &fakeSender{}
		rec := serve(t, &fakeSource{}, sender, "POST", "/api/v1/devices/7/command", []byte(body))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for body %s, got %d", body, rec.Code)
		}
		if sender.calls != 0 {
			t.Errorf("Rejected command must not publish, body %s", body)
		}
	}
}

func TestHandleCommand_PublishFailure(t *testing.T) {
	sender := &fakeSender{err: errors.New("broker down")}
	body := []byte(`{"streetId": "ST_1", "force": "ped_green"}`)

	rec := serve(t, &fakeSource{}, sender, "POST", "/api/v1/devices/7/command", body)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("Expected 502, got %d", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	rec := serve(t, &fakeSource{}, &fakeSender{}, "GET", "/health", nil)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	rec := serve(t, &fakeSource{}, &fakeSender{}, "GET", "/health", nil)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header on response")
	}
}
