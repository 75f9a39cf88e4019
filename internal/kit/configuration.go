package kit

// Well-known Configuration keys.
const (
	ConfigAPIToken     = "api_token"
	ConfigAPIURL       = "api_url"
	ConfigPKToken      = "pk_token"
	ConfigPKURL        = "pk_url"
	ConfigAnalyticsURL = "analytics_url"
	ConfigCellularData = "cellular_data"
	ConfigSegmentTags  = "segment_tags"
)

// Configuration is handed to the kit untouched.
type Configuration map[string]string

func (c Configuration) Get(key string) string { return c[key] }

// Clone returns an independent copy.
func (c Configuration) Clone() Configuration {
	out := make(Configuration, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
