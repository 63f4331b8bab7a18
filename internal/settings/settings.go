// Package settings holds the merge engine's configuration records:
// display/rendering options and tree-matcher parameters, loaded from
// built-in defaults, an optional user config file, and CLI flag
// overrides, in that layered order.
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/predohenr/mergiraf/internal/matcher"
)

// DisplaySettings controls how a merged tree is rendered back to text
// (spec §4.6, §6).
type DisplaySettings struct {
	// MarkerSize is the number of repeated conflict-marker characters
	// (e.g. 7 for "<<<<<<<"). Zero means "use the default".
	MarkerSize int `yaml:"marker_size"`
	// Diff3 includes the base span between ||||||| and ======= in a
	// conflict, rather than the plain two-way diff format.
	Diff3 bool `yaml:"diff3"`
	// Compact keeps the conflict markers but moves lines shared by all
	// revisions at the start and end of a conflict outside of it.
	Compact   bool   `yaml:"compact"`
	BaseName  string `yaml:"-"`
	LeftName  string `yaml:"-"`
	RightName string `yaml:"-"`
}

// DefaultMarkerSize matches Git's own default conflict-marker length.
const DefaultMarkerSize = 7

// DefaultDisplaySettings returns the built-in defaults (spec §6).
func DefaultDisplaySettings() DisplaySettings {
	return DisplaySettings{
		MarkerSize: DefaultMarkerSize,
		Diff3:      false,
		Compact:    false,
		BaseName:   "base",
		LeftName:   "left",
		RightName:  "right",
	}
}

// EffectiveMarkerSize returns MarkerSize, falling back to the default
// when unset.
func (d DisplaySettings) EffectiveMarkerSize() int {
	if d.MarkerSize <= 0 {
		return DefaultMarkerSize
	}
	return d.MarkerSize
}

// MatcherSettings exposes the tree matcher's tunables, so a config file
// can override the built-in primary/auxiliary presets (spec §4.3).
type MatcherSettings struct {
	Primary   matcher.Config `yaml:"primary"`
	Auxiliary matcher.Config `yaml:"auxiliary"`
}

// DefaultMatcherSettings returns the built-in matcher presets.
func DefaultMatcherSettings() MatcherSettings {
	return MatcherSettings{Primary: matcher.Primary, Auxiliary: matcher.Auxiliary}
}

// Config is the full on-disk/CLI-overridable settings record.
type Config struct {
	Display DisplaySettings `yaml:"display"`
	Matcher MatcherSettings `yaml:"matcher"`
}

// DefaultConfig returns the engine's built-in defaults.
func DefaultConfig() Config {
	return Config{Display: DefaultDisplaySettings(), Matcher: DefaultMatcherSettings()}
}

// ConfigPath returns the default user config file location,
// `~/.config/mergiraf/config.yaml`.
func ConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config dir: %w", err)
	}
	return filepath.Join(dir, "mergiraf", "config.yaml"), nil
}

// LoadConfig reads path (if it exists) and layers it over the built-in
// defaults with mergo, so a partial config file only overrides the
// fields it sets. A missing file is not an error: defaults are returned
// unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	contents, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	var fromFile Config
	if err := yaml.Unmarshal(contents, &fromFile); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := mergo.Merge(&cfg, fromFile, mergo.WithOverride); err != nil {
		return cfg, fmt.Errorf("merging config %s onto defaults: %w", path, err)
	}
	return cfg, nil
}

// ApplyCLIOverrides layers non-zero-valued CLI flag overrides onto cfg,
// the same mergo-based layering LoadConfig uses for the file layer, so
// the three-tier precedence (CLI > file > built-in) is expressed the
// same way at each step.
func ApplyCLIOverrides(cfg Config, overrides DisplaySettings) (Config, error) {
	if err := mergo.Merge(&cfg.Display, overrides, mergo.WithOverride); err != nil {
		return cfg, fmt.Errorf("applying CLI overrides: %w", err)
	}
	return cfg, nil
}
