// Package kittest provides an in-memory kit.Manager for tests.
package kittest

import (
	"context"
	"sync"

	"campaignkit-reference/internal/kit"
)

type AnalyticsRecord struct {
	Event     kit.AnalyticsEvent
	Campaigns []*kit.Campaign
}

// Manager is a kit.Manager whose found set is controlled by the test.
type Manager struct {
	mu sync.Mutex

	notifier    kit.Notifier
	found       []*kit.Campaign
	removed     []*kit.Campaign
	viewed      []*kit.Campaign
	analytics   []AnalyticsRecord
	started     bool
	geofencing  bool
	GeofenceErr error
	StartErr    error
}

var _ kit.Manager = (*Manager)(nil)

func New(found ...*kit.Campaign) *Manager {
	return &Manager{found: found}
}

func (m *Manager) SetNotifier(n kit.Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifier = n
}

func (m *Manager) Notifier() kit.Notifier {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notifier
}

func (m *Manager) Start(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StartErr != nil {
		return m.StartErr
	}
	m.started = true
	return nil
}

func (m *Manager) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

func (m *Manager) EnableGeofences() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GeofenceErr != nil {
		return m.GeofenceErr
	}
	m.geofencing = true
	return nil
}

func (m *Manager) DisableGeofences() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.geofencing = false
}

func (m *Manager) Geofencing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.geofencing
}

// RemoveCampaign records the call only; use SetFound to drive the found set.
func (m *Manager) RemoveCampaign(c *kit.Campaign) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, c)
}

func (m *Manager) Removed() []*kit.Campaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*kit.Campaign(nil), m.removed...)
}

func (m *Manager) SetFound(cs ...*kit.Campaign) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.found = cs
}

func (m *Manager) FoundCampaigns() []*kit.Campaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*kit.Campaign(nil), m.found...)
}

func (m *Manager) SetCampaignViewed(c *kit.Campaign) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.viewed = append(m.viewed, c)
}

func (m *Manager) Viewed() []*kit.Campaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*kit.Campaign(nil), m.viewed...)
}

func (m *Manager) RecordAnalytics(ev kit.AnalyticsEvent, cs ...*kit.Campaign) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analytics = append(m.analytics, AnalyticsRecord{Event: ev, Campaigns: cs})
}

func (m *Manager) Analytics() []AnalyticsRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AnalyticsRecord(nil), m.analytics...)
}
