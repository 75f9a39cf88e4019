package kit

import (
	"context"
	"errors"
)

// ErrGooglePlayUnavailable is returned by EnableGeofences when Google Play
// services cannot back geofence monitoring on this device.
var ErrGooglePlayUnavailable = errors.New("google play services unavailable")

// Content is the payload shown when a campaign is opened.
type Content struct {
	Title string `json:"title"`
	Body  string `json:"body"` // HTML
	URL   string `json:"url,omitempty"`
}

// Campaign is owned by the kit. Values handed to a Notifier are never mutated.
type Campaign struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Message string  `json:"message"`
	Content Content `json:"content"`
}

func (c *Campaign) String() string {
	if c == nil {
		return "<nil>"
	}
	return c.ID + " (" + c.Title + ")"
}

// Place is a beacon region or geofence the kit detected.
type Place struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Distance   float64           `json:"distance"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type EventType string

const (
	EventEnter EventType = "enter"
	EventExit  EventType = "exit"
	EventDwell EventType = "dwell"
)

// AnalyticsEvent names a user interaction reported back to the kit.
type AnalyticsEvent string

const (
	AnalyticsDisplayed AnalyticsEvent = "displayed"
	AnalyticsViewed    AnalyticsEvent = "viewed"
	AnalyticsRemoved   AnalyticsEvent = "removed"
)

// Notifier receives kit callbacks. Implementations must assume any thread.
type Notifier interface {
	OnCampaignFound(c *Campaign)
	OnSyncSucceeded()
	OnSyncFailed(err error)
	OnPlaceEvent(p Place, ev EventType)
}

// Manager is the slice of the kit the client drives.
type Manager interface {
	SetNotifier(n Notifier)
	Start(ctx context.Context) error
	EnableGeofences() error
	DisableGeofences()
	RemoveCampaign(c *Campaign)
	FoundCampaigns() []*Campaign
	SetCampaignViewed(c *Campaign)
	RecordAnalytics(ev AnalyticsEvent, cs ...*Campaign)
}
