package platform

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

type Feature string

const FeatureGeofences Feature = "geofences"

type Features map[Feature]bool

func (f Features) Has(x Feature) bool { return f[x] }

// RationaleText is shown before re-requesting a denied location permission.
const RationaleText = "Location access is needed to trigger both campaigns in the background and those attached to geofences"

// GrantedFeatures returns the features the current permissions allow. On
// runtime-permission devices without a grant it shows the rationale when
// needed, issues a request and returns no features; the answer arrives later.
func GrantedFeatures(dev Device, toast func(string)) Features {
	if dev.APILevel() < APILevelRuntimePermissions {
		return Features{FeatureGeofences: true}
	}
	if dev.LocationGranted() {
		return Features{FeatureGeofences: true}
	}
	if dev.ShouldShowRationale() && toast != nil {
		toast(RationaleText)
	}
	dev.RequestLocation()
	return Features{}
}

// VerifyBluetooth reports ErrBluetoothUnavailable or ErrBluetoothUnsupported.
func VerifyBluetooth(dev Device) error {
	ok, err := dev.BluetoothAvailable()
	if err != nil {
		log.Error().Err(err).Msg("bluetooth le not available")
		return err
	}
	if !ok {
		log.Error().Msg("bluetooth not enabled")
		return ErrBluetoothUnavailable
	}
	return nil
}

// CheckPlayServices returns nil when Play services are usable.
func CheckPlayServices(dev Device) (PlayStatus, error) {
	s := dev.PlayServicesStatus()
	if s.Available() {
		log.Debug().Msg("google play services available")
		return s, nil
	}
	log.Warn().Str("status", s.String()).Msg("google play services unavailable")
	return s, fmt.Errorf("%w: %s", ErrPlayServicesUnavailable, s)
}
