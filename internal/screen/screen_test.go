package screen

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignkit-reference/internal/alert"
	"campaignkit-reference/internal/kit"
	"campaignkit-reference/internal/kit/kittest"
	"campaignkit-reference/internal/platform"
	"campaignkit-reference/internal/registry"
	"campaignkit-reference/internal/uiloop"
)

type fixture struct {
	reg  *registry.Registry
	mgr  *kittest.Manager
	dev  *platform.SimulatedDevice
	loop *uiloop.Loop
	tray *alert.Tray
}

func newFixture(t *testing.T, dev platform.DeviceConfig) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	loop := uiloop.New()
	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	mgr := kittest.New()
	tray := alert.NewTray(0)
	return &fixture{
		reg:  registry.New(mgr, loop, tray),
		mgr:  mgr,
		dev:  platform.NewSimulatedDevice(dev),
		loop: loop,
		tray: tray,
	}
}

func (f *fixture) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.loop.Flush(ctx))
}

func healthyDevice() platform.DeviceConfig {
	return platform.DeviceConfig{APILevel: 26, LocationGranted: true, Bluetooth: true, BluetoothLE: true}
}

func TestMain_VisibilityFollowsTriggeredList(t *testing.T) {
	f := newFixture(t, healthyDevice())
	m := NewMain(f.reg, f.mgr, f.dev, f.loop)
	m.OnCreate(false)
	m.OnStart()
	assert.False(t, m.CampaignsVisible())

	c1 := &kit.Campaign{ID: "c1", Title: "One"}
	f.reg.OnCampaignFound(c1)
	f.flush(t)
	assert.True(t, m.CampaignsVisible())

	f.mgr.SetFound()
	require.NoError(t, f.reg.Remove(0))
	f.flush(t)
	assert.False(t, m.CampaignsVisible())

	st := m.State()
	require.Len(t, st.Banners, 1)
	assert.Equal(t, "c1", st.Banners[0].CampaignID)
	assert.Empty(t, f.tray.Notifications())
}

func TestMain_StartEnablesGeofences(t *testing.T) {
	f := newFixture(t, healthyDevice())
	m := NewMain(f.reg, f.mgr, f.dev, f.loop)
	m.OnStart()

	assert.True(t, f.mgr.Geofencing())
	assert.Same(t, m, f.reg.ForegroundScreen())
	assert.Empty(t, m.State().Dialogs)
}

func TestMain_LegacyDeviceSkipsPermissionRequest(t *testing.T) {
	f := newFixture(t, platform.DeviceConfig{APILevel: 19, Bluetooth: true, BluetoothLE: true})
	m := NewMain(f.reg, f.mgr, f.dev, f.loop)
	m.OnStart()

	assert.True(t, f.mgr.Geofencing())
	assert.Zero(t, f.dev.PermissionRequests())
}

func TestMain_PermissionFlow(t *testing.T) {
	cfg := healthyDevice()
	cfg.LocationGranted = false
	f := newFixture(t, cfg)
	m := NewMain(f.reg, f.mgr, f.dev, f.loop)

	m.OnStart()
	assert.Equal(t, 1, f.dev.PermissionRequests())
	assert.False(t, f.mgr.Geofencing())

	m.OnPermissionResult(false)
	assert.Equal(t, []string{ToastPermissionDenied}, m.State().Toasts)
	assert.False(t, f.mgr.Geofencing())

	m.OnPermissionResult(true)
	assert.True(t, f.mgr.Geofencing())
}

func TestMain_PlayServicesDialogShownOnce(t *testing.T) {
	cfg := healthyDevice()
	cfg.PlayServices = platform.PlayUpdateRequired
	f := newFixture(t, cfg)
	m := NewMain(f.reg, f.mgr, f.dev, f.loop)

	m.OnStart()
	m.OnStart()

	st := m.State()
	require.Len(t, st.Dialogs, 1)
	assert.Equal(t, DialogPlayServices, st.Dialogs[0].Title)
	assert.Equal(t, platform.PlayUpdateRequired.String(), st.Dialogs[0].Message)
	assert.True(t, st.ResolvingError)
	assert.True(t, m.SaveState())
	assert.False(t, f.mgr.Geofencing())

	f.dev.SetPlayServicesStatus(platform.PlayAvailable)
	m.OnResolutionResult(true)
	assert.True(t, f.mgr.Geofencing())
	assert.False(t, m.SaveState())

	m.OnResolutionResult(false)
	assert.False(t, f.mgr.Geofencing())
}

func TestMain_DialogDismissedAllowsRetry(t *testing.T) {
	cfg := healthyDevice()
	cfg.PlayServices = platform.PlayMissing
	f := newFixture(t, cfg)
	m := NewMain(f.reg, f.mgr, f.dev, f.loop)

	m.OnStart()
	m.OnPlayDialogDismissed()
	m.OnStart()
	assert.Len(t, m.State().Dialogs, 2)
}

func TestMain_RestoredResolvingStateSuppressesDialog(t *testing.T) {
	cfg := healthyDevice()
	cfg.PlayServices = platform.PlayDisabled
	f := newFixture(t, cfg)
	m := NewMain(f.reg, f.mgr, f.dev, f.loop)
	m.OnCreate(true)
	m.OnStart()
	assert.Empty(t, m.State().Dialogs)
}

func TestMain_GeofenceErrorIsNotFatal(t *testing.T) {
	f := newFixture(t, healthyDevice())
	f.mgr.GeofenceErr = kit.ErrGooglePlayUnavailable
	m := NewMain(f.reg, f.mgr, f.dev, f.loop)

	assert.NotPanics(t, m.OnStart)
	assert.False(t, f.mgr.Geofencing())
}

func TestMain_BluetoothDialogs(t *testing.T) {
	tests := []struct {
		name  string
		cfg   platform.DeviceConfig
		title string
	}{
		{"disabled", platform.DeviceConfig{APILevel: 19, BluetoothLE: true}, DialogBluetoothDisabled},
		{"unsupported", platform.DeviceConfig{APILevel: 19}, DialogBluetoothUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.cfg)
			m := NewMain(f.reg, f.mgr, f.dev, f.loop)
			m.OnStart()

			st := m.State()
			require.Len(t, st.Dialogs, 1)
			assert.Equal(t, tt.title, st.Dialogs[0].Title)
		})
	}
}

func TestMain_StaleStopKeepsSuccessor(t *testing.T) {
	f := newFixture(t, healthyDevice())
	old := NewMain(f.reg, f.mgr, f.dev, f.loop)
	successor := NewMain(f.reg, f.mgr, f.dev, f.loop)

	old.OnStart()
	successor.OnStart()
	old.OnStop()
	assert.Same(t, successor, f.reg.ForegroundScreen())

	successor.OnStop()
	assert.Nil(t, f.reg.ForegroundScreen())

	f.reg.OnCampaignFound(&kit.Campaign{ID: "bg"})
	f.flush(t)
	assert.Len(t, f.tray.Notifications(), 1)
}

func TestMain_RefreshVisibleListPosts(t *testing.T) {
	f := newFixture(t, healthyDevice())
	m := NewMain(f.reg, f.mgr, f.dev, f.loop)
	f.reg.OnCampaignFound(&kit.Campaign{ID: "c"})

	m.RefreshVisibleList()
	f.flush(t)
	assert.True(t, m.CampaignsVisible())
}

func TestDetail_RenderSelectsDeepLinkedTab(t *testing.T) {
	f := newFixture(t, healthyDevice())
	d := NewDetail(f.reg)
	c1 := &kit.Campaign{ID: "c1", Title: "One", Content: kit.Content{Title: "Coffee", Body: "<p>Hot</p>"}}
	c2 := &kit.Campaign{ID: "c2", Title: "Two", Message: "<b>Bagel</b><script>alert(1)</script>"}
	f.reg.OnCampaignFound(c1)
	f.reg.OnCampaignFound(c2)

	page := d.Render("c2")
	require.Len(t, page.Tabs, 2)
	assert.Equal(t, 1, page.Selected)
	assert.Equal(t, "Coffee", page.Tabs[0].Title)
	assert.Equal(t, "Two", page.Tabs[1].Title)
	assert.Equal(t, IndicatorColor, page.Tabs[1].IndicatorColor)
	assert.Equal(t, DividerColor, page.Tabs[1].DividerColor)
	assert.Contains(t, string(page.Tabs[1].Body), "<b>Bagel</b>")
	assert.NotContains(t, string(page.Tabs[1].Body), "script")
	assert.Equal(t, []*kit.Campaign{c2}, f.mgr.Viewed())

	page = d.Render("missing")
	assert.Equal(t, 0, page.Selected)
}

func TestDetail_HTML(t *testing.T) {
	f := newFixture(t, healthyDevice())
	d := NewDetail(f.reg)

	out, err := d.Render("").HTML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "No campaigns triggered yet.")
	assert.Empty(t, f.mgr.Viewed())

	f.reg.OnCampaignFound(&kit.Campaign{ID: "c1", Title: "One", Message: "<p>Deal</p>"})
	out, err = d.Render("c1").HTML()
	require.NoError(t, err)
	assert.Contains(t, string(out), `<article id="c1"><p>Deal</p></article>`)
	assert.Contains(t, string(out), ">One</a>")
}
