package platform

import "strings"

// PlayStatus mirrors the Google Play services availability codes.
type PlayStatus int

const (
	PlayAvailable PlayStatus = iota
	PlayMissing
	PlayUpdating
	PlayUpdateRequired
	PlayDisabled
	PlayInvalid
)

var playStatusText = map[PlayStatus]string{
	PlayAvailable:      "Google Play services available",
	PlayMissing:        "Google Play services is missing",
	PlayUpdating:       "Google Play services is updating",
	PlayUpdateRequired: "Google Play services is out of date",
	PlayDisabled:       "Google Play services has been disabled",
	PlayInvalid:        "Google Play services is invalid",
}

func (s PlayStatus) String() string {
	if t, ok := playStatusText[s]; ok {
		return t
	}
	return "unknown Google Play services status"
}

func (s PlayStatus) Available() bool { return s == PlayAvailable }

// ParsePlayStatus accepts the names used in configuration, e.g. "update_required".
func ParsePlayStatus(v string) PlayStatus {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "missing":
		return PlayMissing
	case "updating":
		return PlayUpdating
	case "update_required", "update-required":
		return PlayUpdateRequired
	case "disabled":
		return PlayDisabled
	case "invalid":
		return PlayInvalid
	default:
		return PlayAvailable
	}
}
