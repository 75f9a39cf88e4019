package screen

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"campaignkit-reference/internal/alert"
	"campaignkit-reference/internal/kit"
	"campaignkit-reference/internal/observability"
	"campaignkit-reference/internal/platform"
	"campaignkit-reference/internal/registry"
	"campaignkit-reference/internal/uiloop"
)

const (
	ToastPermissionDenied = "Both background beacon detection and geofence events are prevented."

	DialogBluetoothDisabled    = "Bluetooth not enabled"
	DialogBluetoothUnsupported = "Bluetooth LE not available"
	DialogPlayServices         = "Google Play services"
)

type Dialog struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// MainState is what the entry screen currently shows.
type MainState struct {
	CampaignsVisible bool          `json:"campaigns_visible"`
	TriggeredCount   int           `json:"triggered_count"`
	ResolvingError   bool          `json:"resolving_error"`
	Dialogs          []Dialog      `json:"dialogs"`
	Toasts           []string      `json:"toasts"`
	Banners          []alert.Alert `json:"banners"`
}

// Main is the entry screen. The "view campaigns" control is visible only
// while the triggered list is non-empty.
type Main struct {
	reg *registry.Registry
	mgr kit.Manager
	dev platform.Device
	ui  uiloop.Dispatcher

	mu             sync.Mutex
	visible        bool
	resolvingError bool
	dialogs        []Dialog
	toasts         []string
	banners        []alert.Alert
}

var _ registry.Screen = (*Main)(nil)

func NewMain(reg *registry.Registry, mgr kit.Manager, dev platform.Device, ui uiloop.Dispatcher) *Main {
	return &Main{reg: reg, mgr: mgr, dev: dev, ui: ui}
}

// OnCreate restores the saved resolving-error flag.
func (m *Main) OnCreate(resolvingError bool) {
	m.mu.Lock()
	m.resolvingError = resolvingError
	m.mu.Unlock()
	m.Refresh()
}

// SaveState returns the flag to hand back to OnCreate after recreation.
func (m *Main) SaveState() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolvingError
}

func (m *Main) OnStart() {
	m.reg.SetForegroundScreen(m)
	m.verifyBluetooth()
	m.togglePermissionFeatures()
	m.Refresh()
}

func (m *Main) OnStop() {
	if !m.reg.ClearForegroundScreen(m) {
		log.Debug().Msg("main screen stopped after being replaced")
	}
}

// Refresh updates the visibility flag. Runs on the UI goroutine.
func (m *Main) Refresh() {
	visible := m.reg.Len() > 0
	m.mu.Lock()
	m.visible = visible
	m.mu.Unlock()
}

// RefreshVisibleList schedules Refresh on the UI goroutine.
func (m *Main) RefreshVisibleList() {
	m.ui.Post(m.Refresh)
}

func (m *Main) ShowBanner(a alert.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.banners = append(m.banners, a)
}

func (m *Main) CampaignsVisible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible
}

func (m *Main) State() MainState {
	n := m.reg.Len()
	m.mu.Lock()
	defer m.mu.Unlock()
	return MainState{
		CampaignsVisible: m.visible,
		TriggeredCount:   n,
		ResolvingError:   m.resolvingError,
		Dialogs:          append([]Dialog(nil), m.dialogs...),
		Toasts:           append([]string(nil), m.toasts...),
		Banners:          append([]alert.Alert(nil), m.banners...),
	}
}

// OnPermissionResult handles the answer to the location permission request.
func (m *Main) OnPermissionResult(granted bool) {
	if granted {
		m.enableGeofences()
		return
	}
	observability.EnvironmentErrors.WithLabelValues(platform.Kind(platform.ErrPermissionDenied)).Inc()
	m.toast(ToastPermissionDenied)
	m.mgr.DisableGeofences()
}

// OnResolutionResult handles the return from the Play services resolution flow.
func (m *Main) OnResolutionResult(ok bool) {
	m.mu.Lock()
	m.resolvingError = false
	m.mu.Unlock()
	if ok {
		m.enableGeofences()
	} else {
		m.mgr.DisableGeofences()
	}
}

func (m *Main) OnPlayDialogDismissed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolvingError = false
}

func (m *Main) togglePermissionFeatures() {
	features := platform.GrantedFeatures(m.dev, m.toast)
	if features.Has(platform.FeatureGeofences) {
		m.enableGeofences()
	}
}

func (m *Main) enableGeofences() {
	if !m.playServicesAvailable() {
		return
	}
	if err := m.mgr.EnableGeofences(); err != nil {
		kind := platform.ErrEnableGeofences
		if errors.Is(err, kit.ErrGooglePlayUnavailable) {
			kind = platform.ErrPlayServicesUnavailable
		}
		observability.EnvironmentErrors.WithLabelValues(platform.Kind(kind)).Inc()
		log.Error().Err(err).Msg("expected google play to be available but enabling geofences failed")
	}
}

// playServicesAvailable shows at most one resolution dialog until it is
// dismissed or resolved.
func (m *Main) playServicesAvailable() bool {
	m.mu.Lock()
	resolving := m.resolvingError
	m.mu.Unlock()
	if resolving {
		return false
	}

	status, err := platform.CheckPlayServices(m.dev)
	if err == nil {
		return true
	}
	observability.EnvironmentErrors.WithLabelValues(platform.Kind(err)).Inc()

	m.mu.Lock()
	m.resolvingError = true
	m.dialogs = append(m.dialogs, Dialog{Title: DialogPlayServices, Message: status.String()})
	m.mu.Unlock()
	return false
}

func (m *Main) verifyBluetooth() {
	err := platform.VerifyBluetooth(m.dev)
	if err == nil {
		return
	}
	observability.EnvironmentErrors.WithLabelValues(platform.Kind(err)).Inc()

	d := Dialog{Title: DialogBluetoothDisabled, Message: "Please enable bluetooth in settings and restart this application."}
	if errors.Is(err, platform.ErrBluetoothUnsupported) {
		d = Dialog{Title: DialogBluetoothUnsupported, Message: "Sorry, this device does not support Bluetooth LE."}
	}
	m.mu.Lock()
	m.dialogs = append(m.dialogs, d)
	m.mu.Unlock()
}

func (m *Main) toast(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toasts = append(m.toasts, msg)
}
