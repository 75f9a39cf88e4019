package platform

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// APILevelRuntimePermissions is the first API level that grants location at runtime.
const APILevelRuntimePermissions = 23

// Device is what the client needs from the host platform.
type Device interface {
	APILevel() int
	LocationGranted() bool
	ShouldShowRationale() bool
	RequestLocation()
	// BluetoothAvailable returns ErrBluetoothUnsupported when there is no LE radio.
	BluetoothAvailable() (bool, error)
	PlayServicesStatus() PlayStatus
}

type DeviceConfig struct {
	APILevel         int
	LocationGranted  bool
	PreviouslyDenied bool
	Bluetooth        bool
	BluetoothLE      bool
	PlayServices     PlayStatus
}

// SimulatedDevice is a Device driven by configuration.
type SimulatedDevice struct {
	mu       sync.Mutex
	cfg      DeviceConfig
	requests int
}

func NewSimulatedDevice(cfg DeviceConfig) *SimulatedDevice {
	return &SimulatedDevice{cfg: cfg}
}

func (d *SimulatedDevice) APILevel() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg.APILevel
}

func (d *SimulatedDevice) LocationGranted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg.LocationGranted
}

// ShouldShowRationale is true only after an earlier request was denied.
func (d *SimulatedDevice) ShouldShowRationale() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg.PreviouslyDenied
}

func (d *SimulatedDevice) RequestLocation() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests++
	log.Debug().Int("requests", d.requests).Msg("location permission requested")
}

func (d *SimulatedDevice) PermissionRequests() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requests
}

// SetLocationGranted records the user's answer to a permission request.
func (d *SimulatedDevice) SetLocationGranted(granted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg.LocationGranted = granted
	if !granted {
		d.cfg.PreviouslyDenied = true
	}
}

func (d *SimulatedDevice) BluetoothAvailable() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.cfg.BluetoothLE {
		return false, ErrBluetoothUnsupported
	}
	return d.cfg.Bluetooth, nil
}

func (d *SimulatedDevice) PlayServicesStatus() PlayStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg.PlayServices
}

func (d *SimulatedDevice) SetPlayServicesStatus(s PlayStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg.PlayServices = s
}
