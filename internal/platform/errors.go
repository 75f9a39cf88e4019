package platform

import "errors"

// Environment failures. None of them is fatal; callers log and show them.
var (
	ErrPlayServicesUnavailable = errors.New("google play services unavailable")
	ErrPermissionDenied        = errors.New("location permission denied")
	ErrBluetoothUnavailable    = errors.New("bluetooth not enabled")
	ErrBluetoothUnsupported    = errors.New("bluetooth le not supported")
	ErrSyncFailed              = errors.New("kit sync failed")
	ErrEnableGeofences         = errors.New("enable geofences failed")
)

// Kind returns a short label for metrics.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrPlayServicesUnavailable):
		return "play_services_unavailable"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrBluetoothUnavailable):
		return "bluetooth_unavailable"
	case errors.Is(err, ErrBluetoothUnsupported):
		return "bluetooth_unsupported"
	case errors.Is(err, ErrSyncFailed):
		return "sync_failed"
	case errors.Is(err, ErrEnableGeofences):
		return "enable_geofences_failed"
	default:
		return "unknown"
	}
}
