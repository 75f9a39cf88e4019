package alert

import (
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"campaignkit-reference/internal/kit"
)

// DetailPath is the route of the detail screen; alerts link back to it.
const DetailPath = "/v1/detail"

// KeyCampaignID is the deep-link query key selecting a campaign tab.
const KeyCampaignID = "campaignId"

type Alert struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	DeepLink   string    `json:"deep_link"`
	CreatedAt  time.Time `json:"created_at"`
}

// Build makes the alert for a found campaign.
func Build(c *kit.Campaign) Alert {
	return Alert{
		ID:         uuid.NewString(),
		CampaignID: c.ID,
		Title:      c.Title,
		Body:       c.Message,
		DeepLink:   DeepLink(c.ID),
		CreatedAt:  time.Now().UTC(),
	}
}

func DeepLink(campaignID string) string {
	q := url.Values{}
	q.Set(KeyCampaignID, campaignID)
	return DetailPath + "?" + q.Encode()
}

// BannerTarget is a foreground screen able to show an in-app banner.
type BannerTarget interface {
	ShowBanner(a Alert)
}

// Presenter routes an alert to the foreground screen or to the platform tray.
type Presenter interface {
	ShowBanner(target BannerTarget, a Alert)
	Notify(a Alert)
}

// Tray is an in-memory platform notification tray, newest first.
type Tray struct {
	mu    sync.Mutex
	max   int
	items []Alert
}

func NewTray(max int) *Tray {
	if max <= 0 {
		max = 50
	}
	return &Tray{max: max}
}

func (t *Tray) ShowBanner(target BannerTarget, a Alert) {
	target.ShowBanner(a)
}

func (t *Tray) Notify(a Alert) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = append([]Alert{a}, t.items...)
	if len(t.items) > t.max {
		t.items = t.items[:t.max]
	}
}

func (t *Tray) Notifications() []Alert {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Alert(nil), t.items...)
}
