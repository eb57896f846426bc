package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultConfigPath is looked for in the working directory when --config is
// not given.
const defaultConfigPath = "metaplate.yaml"

// Config is the optional YAML configuration: named template shortcuts plus
// defaults for flags.
type Config struct {
	Locale    string            `yaml:"locale"`    // Locale for month/weekday names (e.g. "fr_FR")
	Undefined string            `yaml:"undefined"` // Default --undefined string
	Templates map[string]string `yaml:"templates"` // Named templates usable as -p NAME
}

// loadConfig reads the config file. A missing default config is not an
// error; a missing explicit --config is.
func loadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config %s: %w", path, err)
	}
	return cfg, nil
}

// resolveTemplates substitutes named templates from the config: a -p value
// that exactly matches a configured name expands to its template.
func (c *Config) resolveTemplates(templates []string) []string {
	out := make([]string, len(templates))
	for i, t := range templates {
		if named, ok := c.Templates[t]; ok {
			out[i] = named
		} else {
			out[i] = t
		}
	}
	return out
}
