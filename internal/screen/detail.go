package screen

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"

	"campaignkit-reference/internal/kit"
	"campaignkit-reference/internal/registry"
)

const (
	IndicatorColor = "#1e88c7"
	DividerColor   = "#d8d8d8"
)

type Tab struct {
	Index          int           `json:"index"`
	CampaignID     string        `json:"campaign_id"`
	Title          string        `json:"title"`
	IndicatorColor string        `json:"indicator_color"`
	DividerColor   string        `json:"divider_color"`
	Body           template.HTML `json:"body"`
}

type DetailPage struct {
	Tabs     []Tab `json:"tabs"`
	Selected int   `json:"selected"`
}

// Detail shows one tab per triggered campaign.
type Detail struct {
	reg    *registry.Registry
	policy *bluemonday.Policy
}

func NewDetail(reg *registry.Registry) *Detail {
	return &Detail{reg: reg, policy: bluemonday.UGCPolicy()}
}

// Render builds the tab list. campaignID selects the deep-linked tab; an
// unknown or empty id selects the first tab. The selected campaign is marked
// viewed.
func (d *Detail) Render(campaignID string) DetailPage {
	campaigns := d.reg.Triggered()
	page := DetailPage{Tabs: make([]Tab, 0, len(campaigns))}
	selected := -1
	for i, c := range campaigns {
		page.Tabs = append(page.Tabs, Tab{
			Index:          i,
			CampaignID:     c.ID,
			Title:          tabTitle(c),
			IndicatorColor: IndicatorColor,
			DividerColor:   DividerColor,
			Body:           template.HTML(d.policy.Sanitize(body(c))),
		})
		if selected < 0 && campaignID != "" && c.ID == campaignID {
			selected = i
		}
	}
	if selected < 0 {
		if campaignID != "" {
			log.Debug().Str("campaign", campaignID).Msg("deep-linked campaign not in triggered list")
		}
		selected = 0
	}
	page.Selected = selected

	if len(campaigns) > 0 {
		d.reg.SetCampaignViewed(campaigns[selected])
	}
	return page
}

var detailTmpl = template.Must(template.New("detail").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Campaigns</title></head>
<body>
{{- if not .Tabs}}<p>No campaigns triggered yet.</p>{{end}}
<nav>
{{- range .Tabs}}
<a href="?campaignId={{.CampaignID}}" style="border-bottom:3px solid {{if eq .Index $.Selected}}{{.IndicatorColor}}{{else}}transparent{{end}};border-right:1px solid {{.DividerColor}}">{{.Title}}</a>
{{- end}}
</nav>
{{- range .Tabs}}{{if eq .Index $.Selected}}
<article id="{{.CampaignID}}">{{.Body}}</article>
{{- end}}{{end}}
</body></html>
`))

// HTML renders the page.
func (p DetailPage) HTML() ([]byte, error) {
	var buf bytes.Buffer
	if err := detailTmpl.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("render detail: %w", err)
	}
	return buf.Bytes(), nil
}

func tabTitle(c *kit.Campaign) string {
	if c.Content.Title != "" {
		return c.Content.Title
	}
	return c.Title
}

func body(c *kit.Campaign) string {
	if c.Content.Body != "" {
		return c.Content.Body
	}
	return c.Message
}
