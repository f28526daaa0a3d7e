package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DatasourceSettings describes the retrieval/grounding data source attached to
// model calls. Parameters is passed through to the provider untouched, so it
// may carry credentials; the argument builder masks those before logging.
type DatasourceSettings struct {
	Type       string         `yaml:"type"`
	Parameters map[string]any `yaml:"parameters"`
}

// LoadDatasource reads the data-source payload from its own YAML file.
// Parsed with yaml.v3 rather than viper: viper lowercases map keys, and the
// secret field names inside parameters must keep their exact case so the
// redaction pass can find them.
func LoadDatasource(path string) (*DatasourceSettings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read datasource file %q: %w", path, err)
	}
	var ds DatasourceSettings
	if err := yaml.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("config: parse datasource file %q: %w", path, err)
	}
	if ds.Type == "" {
		return nil, fmt.Errorf("config: datasource file %q: type is required", path)
	}
	if ds.Parameters == nil {
		ds.Parameters = map[string]any{}
	}
	return &ds, nil
}

// PayloadConfiguration builds the per-request payload for the data source.
// The returned map is a fresh copy so callers can attach it to request bodies
// without aliasing the long-lived configuration.
func (d *DatasourceSettings) PayloadConfiguration() map[string]any {
	return map[string]any{
		"type":       d.Type,
		"parameters": cloneValue(d.Parameters),
	}
}

// cloneValue deep-copies the YAML-shaped value graphs that appear in
// datasource parameters (maps, slices, scalars).
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
