package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notexe/companion/internal/api"
	"github.com/notexe/companion/internal/auth"
	"github.com/notexe/companion/internal/chat"
	"github.com/notexe/companion/internal/clock"
	"github.com/notexe/companion/internal/config"
	"github.com/notexe/companion/internal/database"
	"github.com/notexe/companion/internal/device"
	"github.com/notexe/companion/internal/holiday"
	"github.com/notexe/companion/internal/metrics"
	"github.com/notexe/companion/internal/reminder"
	"github.com/notexe/companion/internal/report"
)

const testMAC = "aa:bb:cc:dd:ee:ff"

var cst = time.FixedZone("CST", 8*3600)

type stubProvider struct {
	err error
}

func (p *stubProvider) SendMessage(context.Context, api.MessageRequest) (*api.MessageResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &api.MessageResponse{Content: "<section>report body</section>"}, nil
}

func (p *stubProvider) Name() string { return "stub" }
func (p *stubProvider) Close() error { return nil }

type testEnv struct {
	router   *gin.Engine
	provider *stubProvider
	token    string
	now      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(filepath.Join(t.TempDir(), "companion.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	now := time.Date(2026, 1, 17, 9, 0, 0, 0, cst)
	clk := clock.Fixed(now)
	log, _ := test.NewNullLogger()

	users := auth.NewStore(db)
	u, err := users.CreateUser(context.Background(), "alice", now)
	require.NoError(t, err)

	devices := device.NewStore(db)
	_, err = devices.Add(context.Background(), u.ID, "desk bot", testMAC, now)
	require.NoError(t, err)

	m, err := metrics.New()
	require.NoError(t, err)

	holidays := holiday.New()
	chats := chat.NewService(chat.NewStore(db), devices, clk, log, m)
	provider := &stubProvider{}
	gen := report.NewGenerator(provider, config.ModelSettings{Name: "stub"}, nil, log)

	router := NewRouter(Deps{
		Reminders: reminder.NewService(reminder.NewStore(db), devices, holidays, clk, log, m),
		Devices:   devices,
		Users:     users,
		Chats:     chats,
		Reports:   report.NewService(report.NewStore(db), devices, chats, gen, clk, report.Options{Logger: log, Metrics: m}),
		Holidays:  holidays,
		Metrics:   m,
		Clock:     clk,
		Logger:    log,
	})
	return &testEnv{router: router, provider: provider, token: u.Token, now: now}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func TestHealthAndRequestID(t *testing.T) {
	e := newTestEnv(t)

	w, _ := e.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	w, _ = e.do(t, http.MethodGet, "/health", nil, requestIDHeader, "abc-123")
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestReminderLifecycle(t *testing.T) {
	e := newTestEnv(t)

	w, env := e.do(t, http.MethodPost, "/api/reminders", map[string]any{
		"device_mac":     "AA:BB:CC:DD:EE:FF",
		"content":        "drink water",
		"scheduled_time": "08:00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created reminder.CreateResult
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotNil(t, created.NextTriggerAt)
	// 08:00 has passed at 09:00, so it rolls over to tomorrow
	assert.Equal(t, time.Date(2026, 1, 18, 8, 0, 0, 0, cst).Unix(), *created.NextTriggerAt)

	w, env = e.do(t, http.MethodGet, "/api/reminders?device_mac="+testMAC, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list reminder.ListResult
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 1, list.TotalCount)
	assert.Equal(t, 1, list.ActiveCount)

	path := "/api/reminders/" + jsonNumber(created.ReminderID)

	w, env = e.do(t, http.MethodPut, path, map[string]any{"content": "drink tea"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reminder updated", env.Message)

	w, env = e.do(t, http.MethodPost, path+"/complete", map[string]any{"notes": "done"})
	require.Equal(t, http.StatusOK, w.Code)
	var d reminder.Detail
	require.NoError(t, json.Unmarshal(env.Data, &d))
	assert.Equal(t, reminder.StatusCompleted, d.Status)
	assert.Equal(t, "drink tea", d.Content)
	assert.Equal(t, "desk bot", d.DeviceName)

	w, env = e.do(t, http.MethodPost, path+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, env.Success)

	w, _ = e.do(t, http.MethodGet, "/api/reminders/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = e.do(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = e.do(t, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestReminderErrors(t *testing.T) {
	e := newTestEnv(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"bad time", http.MethodPost, "/api/reminders", map[string]any{"device_mac": testMAC, "content": "x", "scheduled_time": "25:00"}, http.StatusBadRequest},
		{"bad type", http.MethodPost, "/api/reminders", map[string]any{"device_mac": testMAC, "content": "x", "scheduled_time": "08:00", "reminder_type": "weekly"}, http.StatusBadRequest},
		{"no device", http.MethodPost, "/api/reminders", map[string]any{"content": "x", "scheduled_time": "08:00"}, http.StatusBadRequest},
		{"unknown device", http.MethodPost, "/api/reminders", map[string]any{"device_mac": "11:22:33:44:55:66", "content": "x", "scheduled_time": "08:00"}, http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/reminders/abc", nil, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/api/reminders?limit=ten", nil, http.StatusBadRequest},
		{"bad status", http.MethodGet, "/api/reminders?status=done", nil, http.StatusBadRequest},
		{"empty update", http.MethodPut, "/api/reminders/1", map[string]any{}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := e.do(t, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestUserDevices(t *testing.T) {
	e := newTestEnv(t)
	bearer := "Bearer " + e.token

	w, _ := e.do(t, http.MethodGet, "/api/user/devices", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := e.do(t, http.MethodPost, "/api/user/devices/add",
		map[string]any{"device_name": "kitchen bot", "mac_address": "11-22-33-44-55-66"}, "Authorization", bearer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var added device.AddResult
	require.NoError(t, json.Unmarshal(env.Data, &added))
	assert.Equal(t, "11:22:33:44:55:66", added.Device.MACAddress)

	w, _ = e.do(t, http.MethodPost, "/api/user/devices/add",
		map[string]any{"device_name": "x", "mac_address": "nope"}, "Authorization", bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = e.do(t, http.MethodPost, "/api/user/devices/set-primary",
		map[string]any{"device_id": added.Device.ID}, "Authorization", bearer)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = e.do(t, http.MethodGet, "/api/user/devices", nil, "Authorization", bearer)
	require.Equal(t, http.StatusOK, w.Code)
	var owned struct {
		Devices []device.Owned `json:"devices"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &owned))
	assert.Len(t, owned.Devices, 2)

	w, _ = e.do(t, http.MethodPost, "/api/user/devices/unbind", map[string]any{}, "Authorization", bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = e.do(t, http.MethodPost, "/api/user/devices/unbind",
		map[string]any{"device_id": added.Device.ID}, "Authorization", bearer)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = e.do(t, http.MethodGet, "/api/devices", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChatsAndReports(t *testing.T) {
	e := newTestEnv(t)

	w, _ := e.do(t, http.MethodPost, "/api/chats/batch", map[string]any{"messages": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := e.do(t, http.MethodPost, "/api/chats/batch", map[string]any{
		"messages": []map[string]string{
			{"user_text": "what is the weather", "ai_text": "sunny"},
			{"user_text": "no answer"},
		},
	}, "Device-Id", "AA:BB:CC:DD:EE:FF")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var batch chat.BatchResult
	require.NoError(t, json.Unmarshal(env.Data, &batch))
	assert.Equal(t, 1, batch.CreatedCount)

	w, _ = e.do(t, http.MethodGet, "/api/chats/"+testMAC+"/2026-01-17", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = e.do(t, http.MethodGet, "/api/chats/"+testMAC+"/17-01-2026", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = e.do(t, http.MethodGet, "/api/chats/stats?date=2026-01-17", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = e.do(t, http.MethodPost, "/api/reports/generate", map[string]any{"device_mac": testMAC, "date": "2026-01-17"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env = e.do(t, http.MethodPost, "/api/reports/generate", map[string]any{"device_mac": testMAC, "date": "2026-01-17"})
	require.Equal(t, http.StatusOK, w.Code)
	var gen report.GenerateResult
	require.NoError(t, json.Unmarshal(env.Data, &gen))
	assert.True(t, gen.AlreadyGenerated)

	w, _ = e.do(t, http.MethodGet, "/api/reports/"+testMAC+"/2026-01-17", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "report body")

	w, _ = e.do(t, http.MethodGet, "/api/reports/"+testMAC+"/2026-01-17/json", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = e.do(t, http.MethodGet, "/api/reports/"+testMAC+"/2026-01-16", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = e.do(t, http.MethodGet, "/api/reports?device_mac="+testMAC, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = e.do(t, http.MethodPost, "/api/reports/generate", map[string]any{"device_mac": testMAC, "date": "2026-01-16"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportProviderFailure(t *testing.T) {
	e := newTestEnv(t)
	e.provider.err = errors.New("upstream unavailable")

	w, _ := e.do(t, http.MethodPost, "/api/chats/batch", map[string]any{
		"messages": []map[string]string{{"user_text": "hi", "ai_text": "hello"}},
	}, "Device-Id", testMAC)
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := e.do(t, http.MethodPost, "/api/reports/generate", map[string]any{"device_mac": testMAC})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	var gen report.GenerateResult
	require.NoError(t, json.Unmarshal(env.Data, &gen))
	assert.Equal(t, report.StatusFailed, gen.GenerationStatus)
}

func TestHolidays(t *testing.T) {
	e := newTestEnv(t)

	w, env := e.do(t, http.MethodGet, "/api/holidays/2026-10-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		IsHoliday bool   `json:"is_holiday"`
		Name      string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.True(t, got.IsHoliday)
	assert.Equal(t, "国庆节", got.Name)

	w, _ = e.do(t, http.MethodGet, "/api/holidays", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = e.do(t, http.MethodGet, "/api/holidays/tomorrow", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodGet, "/api/reminders", nil)

	w, _ := e.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `companion_http_request_duration_seconds_count{method="GET",route="/api/reminders",status="200"} 1`)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(badRequest("x")))
	assert.Equal(t, http.StatusNotFound, statusFor(device.ErrDeviceNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(reminder.ErrInvalidTransition))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
