// Package props loads the flat kit settings handed to the campaign kit.
package props

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"campaignkit-reference/internal/kit"
)

// envOverrides maps environment variables onto kit settings keys.
var envOverrides = map[string]string{
	"KIT_API_TOKEN":     kit.ConfigAPIToken,
	"KIT_API_URL":       kit.ConfigAPIURL,
	"KIT_PK_TOKEN":      kit.ConfigPKToken,
	"KIT_PK_URL":        kit.ConfigPKURL,
	"KIT_ANALYTICS_URL": kit.ConfigAnalyticsURL,
	"KIT_CELLULAR_DATA": kit.ConfigCellularData,
	"KIT_SEGMENT_TAGS":  kit.ConfigSegmentTags,
}

// Load reads a YAML mapping of string keys to scalar values. A missing file
// yields only the env overrides. Values are not validated.
func Load(path string) (kit.Configuration, error) {
	cfg := kit.Configuration{}
	if err := loadYAML(path, cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func loadYAML(path string, out kit.Configuration) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open kit settings %s: %w", path, err)
	}
	defer f.Close()

	var raw map[string]interface{}
	if err := yaml.NewDecoder(f).Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode kit settings %s: %w", path, err)
	}
	for k, v := range raw {
		switch vv := v.(type) {
		case nil:
			out[k] = ""
		case []interface{}:
			parts := make([]string, 0, len(vv))
			for _, p := range vv {
				parts = append(parts, fmt.Sprint(p))
			}
			out[k] = strings.Join(parts, ",")
		case map[string]interface{}:
			return fmt.Errorf("kit settings %s: key %q must be a scalar", path, k)
		default:
			out[k] = fmt.Sprint(vv)
		}
	}
	return nil
}

func applyEnvOverrides(c kit.Configuration) {
	for env, key := range envOverrides {
		if v := os.Getenv(env); v != "" {
			c[key] = v
		}
	}
}
