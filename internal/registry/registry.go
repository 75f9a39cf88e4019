// Package registry holds the campaigns triggered during this process lifetime
// and bridges kit callbacks, which arrive on arbitrary goroutines, to the
// foreground screen through the UI dispatcher.
package registry

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"campaignkit-reference/internal/alert"
	"campaignkit-reference/internal/kit"
	"campaignkit-reference/internal/observability"
	"campaignkit-reference/internal/uiloop"
)

var ErrNotFound = errors.New("campaign not found")

// Screen is a foreground screen the registry can refresh and show banners on.
// Both methods are only ever invoked on the UI dispatcher.
type Screen interface {
	alert.BannerTarget
	Refresh()
}

// Registry implements kit.Notifier.
type Registry struct {
	mgr       kit.Manager
	ui        uiloop.Dispatcher
	presenter alert.Presenter

	removeMu sync.Mutex // one resync at a time

	mu         sync.Mutex
	triggered  []*kit.Campaign
	foreground Screen
	resyncing  bool
	// detections delivered while a resync waits on the kit
	pending []*kit.Campaign
}

var _ kit.Notifier = (*Registry)(nil)

func New(mgr kit.Manager, ui uiloop.Dispatcher, presenter alert.Presenter) *Registry {
	return &Registry{mgr: mgr, ui: ui, presenter: presenter}
}

// OnCampaignFound appends c, alerts the user and refreshes the foreground screen.
func (r *Registry) OnCampaignFound(c *kit.Campaign) {
	if c == nil {
		log.Warn().Msg("nil campaign from kit; ignored")
		return
	}
	log.Info().Str("campaign", c.ID).Str("title", c.Title).Msg("campaign found")

	r.mu.Lock()
	r.triggered = append(r.triggered, c)
	if r.resyncing {
		r.pending = append(r.pending, c)
	}
	n := len(r.triggered)
	screen := r.foreground
	r.mu.Unlock()

	observability.CampaignsFound.Inc()
	observability.TriggeredCampaigns.Set(float64(n))

	a := alert.Build(c)
	if screen != nil {
		r.ui.Post(func() { r.showBanner(screen, a) })
	} else {
		observability.Alerts.WithLabelValues("notification").Inc()
		r.presenter.Notify(a)
	}
	r.mgr.RecordAnalytics(kit.AnalyticsDisplayed, c)

	r.refresh(screen)
}

func (r *Registry) OnSyncSucceeded() {
	observability.Syncs.WithLabelValues("ok").Inc()
	log.Info().Msg("kit sync succeeded")
}

// OnSyncFailed only records the failure; retrying is the kit's business.
func (r *Registry) OnSyncFailed(err error) {
	observability.Syncs.WithLabelValues("failed").Inc()
	log.Error().Err(err).Msg("kit sync failed")
}

func (r *Registry) OnPlaceEvent(p kit.Place, ev kit.EventType) {
	observability.PlaceEvents.WithLabelValues(eventLabel(ev)).Inc()
	log.Info().
		Str("event", string(ev)).
		Str("place", p.ID).
		Str("name", p.Name).
		Float64("distance", p.Distance).
		Interface("attributes", p.Attributes).
		Msg("place detected")
}

// Triggered returns a copy of the triggered list in detection order.
func (r *Registry) Triggered() []*kit.Campaign {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*kit.Campaign(nil), r.triggered...)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.triggered)
}

// CampaignAt reports false for any out-of-range index.
func (r *Registry) CampaignAt(i int) (*kit.Campaign, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.triggered) {
		return nil, false
	}
	return r.triggered[i], true
}

// Remove asks the kit to drop the campaign at i and then replaces the local
// list with the kit's found campaigns. Detections delivered while the kit is
// being queried are kept if the kit's answer predates them.
func (r *Registry) Remove(i int) error {
	r.removeMu.Lock()
	defer r.removeMu.Unlock()

	c, ok := r.CampaignAt(i)
	if !ok {
		return ErrNotFound
	}

	r.mu.Lock()
	r.resyncing = true
	r.pending = nil
	r.mu.Unlock()

	r.mgr.RemoveCampaign(c)
	r.mgr.RecordAnalytics(kit.AnalyticsRemoved, c)
	found := r.mgr.FoundCampaigns()

	r.mu.Lock()
	next := append([]*kit.Campaign(nil), found...)
	for _, p := range r.pending {
		if !containsID(found, p.ID) {
			next = append(next, p)
		}
	}
	r.triggered = next
	r.resyncing = false
	r.pending = nil
	n := len(r.triggered)
	screen := r.foreground
	r.mu.Unlock()

	observability.TriggeredCampaigns.Set(float64(n))
	if containsID(found, c.ID) {
		log.Debug().Str("campaign", c.ID).Msg("kit still lists removed campaign")
	} else {
		log.Debug().Str("campaign", c.ID).Int("remaining", n).Msg("campaign removed")
	}
	r.refresh(screen)
	return nil
}

func (r *Registry) SetCampaignViewed(c *kit.Campaign) {
	if c == nil {
		return
	}
	r.mgr.SetCampaignViewed(c)
	r.mgr.RecordAnalytics(kit.AnalyticsViewed, c)
}

func (r *Registry) SetForegroundScreen(s Screen) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.foreground = s
}

// ClearForegroundScreen clears the reference only while s is still the
// recorded screen, so a late stop from a replaced screen is a no-op.
func (r *Registry) ClearForegroundScreen(s Screen) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.foreground == nil || r.foreground != s {
		return false
	}
	r.foreground = nil
	return true
}

func (r *Registry) ForegroundScreen() Screen {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.foreground
}

// showBanner runs on the UI dispatcher. A screen stopped since the alert was
// built gets nothing; the alert goes to the platform tray instead.
func (r *Registry) showBanner(s Screen, a alert.Alert) {
	if r.ForegroundScreen() != s {
		observability.Alerts.WithLabelValues("notification").Inc()
		r.presenter.Notify(a)
		return
	}
	observability.Alerts.WithLabelValues("banner").Inc()
	r.presenter.ShowBanner(s, a)
}

func (r *Registry) refresh(s Screen) {
	if s == nil {
		log.Debug().Msg("no foreground screen to refresh")
		return
	}
	r.ui.Post(s.Refresh)
}

func containsID(cs []*kit.Campaign, id string) bool {
	for _, c := range cs {
		if c.ID == id {
			return true
		}
	}
	return false
}

// eventLabel bounds the metric label set to the known event types.
func eventLabel(ev kit.EventType) string {
	switch ev {
	case kit.EventEnter, kit.EventExit, kit.EventDwell:
		return string(ev)
	default:
		return "other"
	}
}
