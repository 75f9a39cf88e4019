package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignkit-reference/internal/alert"
	"campaignkit-reference/internal/api"
	"campaignkit-reference/internal/kit"
	"campaignkit-reference/internal/kit/kittest"
	"campaignkit-reference/internal/platform"
	"campaignkit-reference/internal/screen"
)

type testApp struct {
	*App
	mgr *kittest.Manager
	ts  *httptest.Server
}

func newTestApp(t *testing.T, dev platform.DeviceConfig) *testApp {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	mgr := kittest.New()
	app := New(mgr, platform.NewSimulatedDevice(dev), 10)
	require.NoError(t, app.Start(ctx))

	events := func(payload string) {
		var c kit.Campaign
		if err := json.Unmarshal([]byte(payload), &c); err == nil {
			done := make(chan struct{})
			go func() { // kit callbacks arrive off the UI goroutine
				defer close(done)
				mgr.Notifier().OnCampaignFound(&c)
			}()
			<-done
		}
	}
	ts := httptest.NewServer(api.Router(app.Handler(events)))
	t.Cleanup(ts.Close)
	return &testApp{App: app, mgr: mgr, ts: ts}
}

func healthy() platform.DeviceConfig {
	return platform.DeviceConfig{APILevel: 26, LocationGranted: true, Bluetooth: true, BluetoothLE: true}
}

func (a *testApp) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, a.ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (a *testApp) mainState(t *testing.T) screen.MainState {
	t.Helper()
	resp := a.do(t, http.MethodGet, "/v1/main", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st screen.MainState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	return st
}

func TestApp_StartRegistersNotifierAndForeground(t *testing.T) {
	a := newTestApp(t, healthy())

	st := a.mainState(t)
	assert.False(t, st.CampaignsVisible)
	assert.True(t, a.mgr.Started())
	assert.True(t, a.mgr.Geofencing())
	assert.Same(t, a.Reg, a.mgr.Notifier())
	assert.Same(t, a.Main, a.Reg.ForegroundScreen())
}

func TestApp_CampaignFlowOverHTTP(t *testing.T) {
	a := newTestApp(t, healthy())

	resp := a.do(t, http.MethodGet, "/v1/campaigns", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/v1/kit/events", `{"id":"c1","title":"Coffee","message":"<p>Half price</p>"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp = a.do(t, http.MethodPost, "/v1/kit/events", `{"id":"c2","title":"Bagel"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	st := a.mainState(t)
	assert.True(t, st.CampaignsVisible)
	assert.Equal(t, 2, st.TriggeredCount)
	assert.Len(t, st.Banners, 2)

	resp = a.do(t, http.MethodGet, "/v1/campaigns", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []kit.Campaign
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 2)
	assert.Equal(t, "c1", list[0].ID)
	assert.Equal(t, "c2", list[1].ID)

	resp = a.do(t, http.MethodGet, "/v1/campaigns/1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = a.do(t, http.MethodGet, "/v1/campaigns/7", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = a.do(t, http.MethodGet, "/v1/campaigns/x", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/v1/detail?campaignId=c2&format=json", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page screen.DetailPage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, 1, page.Selected)
	assert.Len(t, page.Tabs, 2)

	resp = a.do(t, http.MethodGet, alert.DeepLink("c1"), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	a.mgr.SetFound(&kit.Campaign{ID: "c2", Title: "Bagel"})
	resp = a.do(t, http.MethodDelete, "/v1/campaigns/0", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Len(t, a.mgr.Removed(), 1)
	assert.Equal(t, "c1", a.mgr.Removed()[0].ID)

	got := a.Reg.Triggered()
	require.Len(t, got, 1)
	assert.Equal(t, "c2", got[0].ID)

	resp = a.do(t, http.MethodDelete, "/v1/campaigns/5", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestApp_BackgroundDetectionPostsNotification(t *testing.T) {
	a := newTestApp(t, healthy())

	resp := a.do(t, http.MethodPost, "/v1/main/stop", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Nil(t, a.Reg.ForegroundScreen())

	a.do(t, http.MethodPost, "/v1/kit/events", `{"id":"c1","title":"Coffee"}`)

	resp = a.do(t, http.MethodGet, "/v1/notifications", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var notes []alert.Alert
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&notes))
	require.Len(t, notes, 1)
	assert.Equal(t, alert.DeepLink("c1"), notes[0].DeepLink)
	assert.Empty(t, a.mainState(t).Banners)
}

func TestApp_PermissionEndpoints(t *testing.T) {
	cfg := healthy()
	cfg.LocationGranted = false
	a := newTestApp(t, cfg)
	assert.False(t, a.mainState(t).CampaignsVisible)
	assert.False(t, a.mgr.Geofencing())

	resp := a.do(t, http.MethodPost, "/v1/main/permission?granted=maybe", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = a.do(t, http.MethodPost, "/v1/main/permission?granted=false", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st screen.MainState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, []string{screen.ToastPermissionDenied}, st.Toasts)

	a.do(t, http.MethodPost, "/v1/main/permission?granted=true", "")
	assert.True(t, a.mgr.Geofencing())
}

func TestApp_PlayServicesResolution(t *testing.T) {
	cfg := healthy()
	cfg.PlayServices = platform.PlayMissing
	a := newTestApp(t, cfg)

	st := a.mainState(t)
	require.Len(t, st.Dialogs, 1)
	assert.True(t, st.ResolvingError)

	resp := a.do(t, http.MethodPost, "/v1/main/dialog/dismiss", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, a.mainState(t).ResolvingError)

	a.do(t, http.MethodPost, "/v1/main/resolution?ok=false", "")
	assert.False(t, a.mgr.Geofencing())
}

func TestApp_HealthAndMetrics(t *testing.T) {
	a := newTestApp(t, healthy())

	resp := a.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestApp_KitEventRejectsGarbage(t *testing.T) {
	a := newTestApp(t, healthy())
	resp := a.do(t, http.MethodPost, "/v1/kit/events", "{nope")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	h := a.Handler(nil)
	w := httptest.NewRecorder()
	h.KitEvent(w, httptest.NewRequest(http.MethodPost, "/v1/kit/events", strings.NewReader("{}")))
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestApp_StartFailsWhenKitFails(t *testing.T) {
	mgr := kittest.New()
	mgr.StartErr = context.Canceled
	app := New(mgr, platform.NewSimulatedDevice(healthy()), 0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.ErrorIs(t, app.Start(ctx), context.Canceled)
}
