// Package kitmgr is a Postgres-backed kit.Manager used by the reference
// server in place of the proprietary kit. Detection events arrive as NOTIFY
// payloads and are delivered to the notifier on the listener goroutine.
package kitmgr

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"campaignkit-reference/internal/cache"
	"campaignkit-reference/internal/kit"
	"campaignkit-reference/internal/platform"
	"campaignkit-reference/internal/storage"
)

// Store is the persistence the manager needs; *storage.Store satisfies it.
type Store interface {
	LoadFoundCampaigns(ctx context.Context) ([]storage.CampaignRow, error)
	MarkFound(ctx context.Context, id string) (storage.CampaignRow, error)
	RemoveFound(ctx context.Context, id string) error
	MarkViewed(ctx context.Context, id string) error
	InsertAnalytics(ctx context.Context, event string, ids []string) error
}

// Listen blocks delivering event payloads until ctx is done.
type Listen func(ctx context.Context, handle func(payload string))

type Options struct {
	Listen       Listen
	SyncInterval time.Duration
}

type Manager struct {
	store Store
	dev   platform.Device
	cfg   kit.Configuration
	opts  Options

	notifier cache.Snapshot[kit.Notifier]
	found    cache.Snapshot[[]*kit.Campaign]
	foundMu  sync.Mutex // serializes writers of found

	mu         sync.Mutex
	ctx        context.Context
	started    bool
	geofencing bool
}

var _ kit.Manager = (*Manager)(nil)

func New(store Store, dev platform.Device, cfg kit.Configuration, opts Options) *Manager {
	return &Manager{store: store, dev: dev, cfg: cfg.Clone(), opts: opts, ctx: context.Background()}
}

func (m *Manager) Configuration() kit.Configuration { return m.cfg.Clone() }

func (m *Manager) SetNotifier(n kit.Notifier) { m.notifier.Store(n) }

// Start syncs once, then keeps syncing every SyncInterval and listening for
// events in the background until ctx is done. Sync failures go to the notifier.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.ctx = ctx
	m.mu.Unlock()

	log.Info().
		Str("api_url", m.cfg.Get(kit.ConfigAPIURL)).
		Strs("segment_tags", splitTags(m.cfg.Get(kit.ConfigSegmentTags))).
		Msg("campaign kit starting")

	m.Sync(ctx)

	if m.opts.SyncInterval > 0 {
		go m.syncLoop(ctx, m.opts.SyncInterval)
	}
	if m.opts.Listen != nil {
		go m.opts.Listen(ctx, m.HandleEvent)
	}
	return nil
}

// Sync replaces the found set with the stored one.
func (m *Manager) Sync(ctx context.Context) {
	rows, err := m.store.LoadFoundCampaigns(ctx)
	n := m.notifier.Load()
	if err != nil {
		if n != nil {
			n.OnSyncFailed(fmt.Errorf("%w: %w", platform.ErrSyncFailed, err))
		}
		return
	}
	cs := make([]*kit.Campaign, 0, len(rows))
	for _, r := range rows {
		cs = append(cs, toCampaign(r))
	}
	m.foundMu.Lock()
	m.found.Store(cs)
	m.foundMu.Unlock()
	if n != nil {
		n.OnSyncSucceeded()
	}
}

func (m *Manager) syncLoop(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Sync(ctx)
		}
	}
}

// Event is the NOTIFY payload.
type Event struct {
	Kind       string        `json:"kind"` // "campaign" | "place"
	CampaignID string        `json:"campaign_id,omitempty"`
	Place      *kit.Place    `json:"place,omitempty"`
	Event      kit.EventType `json:"event,omitempty"`
}

// HandleEvent decodes one payload and calls the notifier.
func (m *Manager) HandleEvent(payload string) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		log.Warn().Err(err).Str("payload", payload).Msg("malformed kit event")
		return
	}
	n := m.notifier.Load()

	switch ev.Kind {
	case "campaign":
		row, err := m.store.MarkFound(m.context(), ev.CampaignID)
		if err != nil {
			log.Error().Err(err).Str("campaign", ev.CampaignID).Msg("mark found")
			return
		}
		c := toCampaign(row)
		m.addFound(c)
		if n != nil {
			n.OnCampaignFound(c)
		}
	case "place":
		if ev.Place == nil {
			log.Warn().Str("payload", payload).Msg("place event without place")
			return
		}
		if ev.Event == "" {
			ev.Event = kit.EventEnter
		}
		if n != nil {
			n.OnPlaceEvent(*ev.Place, ev.Event)
		}
	default:
		log.Warn().Str("kind", ev.Kind).Msg("unknown kit event")
	}
}

func (m *Manager) EnableGeofences() error {
	if s := m.dev.PlayServicesStatus(); !s.Available() {
		return fmt.Errorf("%w: %s", kit.ErrGooglePlayUnavailable, s)
	}
	m.mu.Lock()
	m.geofencing = true
	m.mu.Unlock()
	log.Info().Msg("geofences enabled")
	return nil
}

func (m *Manager) DisableGeofences() {
	m.mu.Lock()
	m.geofencing = false
	m.mu.Unlock()
	log.Info().Msg("geofences disabled")
}

func (m *Manager) GeofencesEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.geofencing
}

func (m *Manager) RemoveCampaign(c *kit.Campaign) {
	if c == nil {
		return
	}
	if err := m.store.RemoveFound(m.context(), c.ID); err != nil {
		log.Error().Err(err).Str("campaign", c.ID).Msg("remove campaign")
		return
	}
	m.foundMu.Lock()
	defer m.foundMu.Unlock()
	cur := m.found.Load()
	next := make([]*kit.Campaign, 0, len(cur))
	for _, f := range cur {
		if f.ID != c.ID {
			next = append(next, f)
		}
	}
	m.found.Store(next)
}

// FoundCampaigns returns a copy of the found set.
func (m *Manager) FoundCampaigns() []*kit.Campaign {
	return append([]*kit.Campaign(nil), m.found.Load()...)
}

func (m *Manager) SetCampaignViewed(c *kit.Campaign) {
	if c == nil {
		return
	}
	if err := m.store.MarkViewed(m.context(), c.ID); err != nil {
		log.Error().Err(err).Str("campaign", c.ID).Msg("mark viewed")
	}
}

func (m *Manager) RecordAnalytics(ev kit.AnalyticsEvent, cs ...*kit.Campaign) {
	ids := make([]string, 0, len(cs))
	for _, c := range cs {
		if c != nil {
			ids = append(ids, c.ID)
		}
	}
	if err := m.store.InsertAnalytics(m.context(), string(ev), ids); err != nil {
		log.Error().Err(err).Str("event", string(ev)).Msg("record analytics")
	}
}

// addFound keeps one entry per campaign; a re-found campaign moves to the end.
func (m *Manager) addFound(c *kit.Campaign) {
	m.foundMu.Lock()
	defer m.foundMu.Unlock()
	cur := m.found.Load()
	next := make([]*kit.Campaign, 0, len(cur)+1)
	for _, f := range cur {
		if f.ID != c.ID {
			next = append(next, f)
		}
	}
	m.found.Store(append(next, c))
}

func (m *Manager) context() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctx
}

func toCampaign(r storage.CampaignRow) *kit.Campaign {
	return &kit.Campaign{
		ID:      r.ID,
		Title:   r.Title,
		Message: r.Message,
		Content: kit.Content{Title: r.ContentTitle, Body: r.ContentBody, URL: r.ContentURL},
	}
}

func splitTags(v string) []string {
	var out []string
	for _, t := range strings.Split(v, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
