// Package config provides configuration loading and validation for the
// contour server.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/acalcutt/contour-mvt-server/internal/contour"
	"github.com/acalcutt/contour-mvt-server/internal/dem"
	"github.com/acalcutt/contour-mvt-server/internal/locator"
)

// Defaults applied when the document leaves a field unset.
const (
	DefaultPort      = 8080
	DefaultMaxZoom   = 12
	DefaultCacheSize = 64
	DefaultTimeoutMs = 10000

	defaultBlankTileSize   = 512
	defaultBlankTileNoData = 0
)

// defaultThresholds is the contour interval table used when a source
// declares no contour configuration at all.
var defaultThresholds = map[string]Intervals{
	"1":  {600, 3000},
	"8":  {150, 750},
	"12": {10, 50},
}

// ConfigError is a fatal configuration violation, reported at startup with
// the offending source when one is involved.
type ConfigError struct {
	Source string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Source == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration for source %q: %s", e.Source, e.Reason)
}

func configErrorf(source, format string, args ...any) error {
	return &ConfigError{Source: source, Reason: fmt.Sprintf(format, args...)}
}

// Option configures the loader.
type Option func(*loaderConfig) error

type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML or JSON file.
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}
		cfg.path = path
		return nil
	}
}

// Config is the root configuration structure.
type Config struct {
	Server ServerConfig `yaml:"server"`

	// Global blank-tile defaults; per-source overrides win field by field.
	BlankTileNoDataValue *float64 `yaml:"blankTileNoDataValue,omitempty"`
	BlankTileSize        *int     `yaml:"blankTileSize,omitempty"`
	BlankTileFormat      string   `yaml:"blankTileFormat,omitempty"`

	Sources map[string]*SourceConfig `yaml:"sources"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port int `yaml:"port,omitempty"`
}

// SourceConfig defines a single DEM source. The exported canonical fields
// (Name, Locator, Enc) are filled in by validation.
type SourceConfig struct {
	Tiles     TileLocators    `yaml:"tiles"`
	Encoding  string          `yaml:"encoding"`
	MaxZoom   int             `yaml:"maxzoom,omitempty"`
	CacheSize int             `yaml:"cacheSize,omitempty"`
	TimeoutMs int             `yaml:"timeoutMs,omitempty"`
	Contours  *ContoursConfig `yaml:"contours,omitempty"`

	BlankTileNoDataValue *float64 `yaml:"blankTileNoDataValue,omitempty"`
	BlankTileSize        *int     `yaml:"blankTileSize,omitempty"`
	BlankTileFormat      string   `yaml:"blankTileFormat,omitempty"`

	// Canonical fields, populated during validation.
	Name    string                  `yaml:"-"`
	Locator locator.ResolvedLocator `yaml:"-"`
	Enc     dem.Encoding            `yaml:"-"`
}

// ContoursConfig holds the contour-line options for a source. Levels and
// Thresholds are mutually exclusive.
type ContoursConfig struct {
	Multiplier   float64              `yaml:"multiplier,omitempty"`
	Levels       []float64            `yaml:"levels,omitempty"`
	Thresholds   map[string]Intervals `yaml:"thresholds,omitempty"`
	ContourLayer string               `yaml:"contourLayer,omitempty"`
	ElevationKey string               `yaml:"elevationKey,omitempty"`
	LevelKey     string               `yaml:"levelKey,omitempty"`
	Extent       int                  `yaml:"extent,omitempty"`
	Buffer       int                  `yaml:"buffer,omitempty"`
}

// TileLocators accepts either a single locator string or a list of them.
// Only the first entry is used.
type TileLocators []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *TileLocators) UnmarshalYAML(value *yaml.Node) error {
	var single string
	if err := value.Decode(&single); err == nil {
		*t = TileLocators{single}
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return fmt.Errorf("tiles must be a string or a list of strings")
	}
	*t = TileLocators(list)
	return nil
}

// Intervals accepts either a single interval or a [minor, major] pair.
type Intervals []float64

// UnmarshalYAML implements yaml.Unmarshaler.
func (iv *Intervals) UnmarshalYAML(value *yaml.Node) error {
	var single float64
	if err := value.Decode(&single); err == nil {
		*iv = Intervals{single}
		return nil
	}
	var list []float64
	if err := value.Decode(&list); err != nil {
		return fmt.Errorf("threshold value must be a number or a [minor, major] pair")
	}
	*iv = Intervals(list)
	return nil
}

// LoadConfig loads, parses and validates a configuration document. Any
// violation is fatal: the config never partially initializes.
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}
	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates a raw configuration document.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SourceNames returns the configured source names in sorted order.
func (c *Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Port returns the configured listen port or the default.
func (c *Config) Port() int {
	if c.Server.Port != 0 {
		return c.Server.Port
	}
	return DefaultPort
}

func (c *Config) validate() error {
	if len(c.Sources) == 0 {
		return configErrorf("", "at least one source must be configured")
	}

	if c.BlankTileFormat != "" {
		if _, err := dem.ParseFormat(c.BlankTileFormat); err != nil {
			return configErrorf("", "%v", err)
		}
	}

	// Sorted order keeps the first reported violation deterministic.
	for _, name := range c.SourceNames() {
		src := c.Sources[name]
		if src == nil {
			return configErrorf(name, "source definition is empty")
		}
		if err := c.validateSource(name, src); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateSource(name string, src *SourceConfig) error {
	if len(src.Tiles) == 0 || src.Tiles[0] == "" {
		return configErrorf(name, "tiles locator is required")
	}
	if src.Encoding == "" {
		return configErrorf(name, "encoding is required")
	}
	enc, err := dem.ParseEncoding(src.Encoding)
	if err != nil {
		return configErrorf(name, "%v", err)
	}

	if src.Contours != nil {
		if len(src.Contours.Levels) > 0 && len(src.Contours.Thresholds) > 0 {
			return configErrorf(name, "contours must not set both levels and thresholds")
		}
		for key := range src.Contours.Thresholds {
			if _, err := strconv.Atoi(key); err != nil {
				return configErrorf(name, "threshold zoom key %q is not an integer", key)
			}
		}
	}

	if src.BlankTileFormat != "" {
		if _, err := dem.ParseFormat(src.BlankTileFormat); err != nil {
			return configErrorf(name, "%v", err)
		}
	}

	loc, err := locator.Resolve(src.Tiles[0])
	if err != nil {
		return configErrorf(name, "%v", err)
	}
	if loc.Kind == locator.KindPMTilesLocal || loc.Kind == locator.KindMBTilesLocal {
		if _, err := os.Stat(loc.Location); err != nil {
			return configErrorf(name, "archive file %s does not exist", loc.Location)
		}
	}

	src.Name = name
	src.Locator = loc
	src.Enc = enc
	return nil
}

// Timeout returns the source's backend fetch timeout.
func (s *SourceConfig) Timeout() time.Duration {
	ms := s.TimeoutMs
	if ms <= 0 {
		ms = DefaultTimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}

// EffectiveMaxZoom returns the source's native maximum zoom.
func (s *SourceConfig) EffectiveMaxZoom() int {
	if s.MaxZoom > 0 {
		return s.MaxZoom
	}
	return DefaultMaxZoom
}

// EffectiveCacheSize returns the source's DEM tile cache size.
func (s *SourceConfig) EffectiveCacheSize() int {
	if s.CacheSize > 0 {
		return s.CacheSize
	}
	return DefaultCacheSize
}

// BlankSpecFor merges the global blank-tile defaults with a source's
// overrides, field by field, source winning.
func (c *Config) BlankSpecFor(s *SourceConfig) dem.BlankTileSpec {
	spec := dem.BlankTileSpec{
		Width:    defaultBlankTileSize,
		Height:   defaultBlankTileSize,
		NoData:   defaultBlankTileNoData,
		Encoding: s.Enc,
		Format:   dem.FormatPNG,
	}

	if c.BlankTileSize != nil {
		spec.Width, spec.Height = *c.BlankTileSize, *c.BlankTileSize
	}
	if c.BlankTileNoDataValue != nil {
		spec.NoData = *c.BlankTileNoDataValue
	}
	if c.BlankTileFormat != "" {
		// Validated earlier, cannot fail here.
		spec.Format, _ = dem.ParseFormat(c.BlankTileFormat)
	}

	if s.BlankTileSize != nil {
		spec.Width, spec.Height = *s.BlankTileSize, *s.BlankTileSize
	}
	if s.BlankTileNoDataValue != nil {
		spec.NoData = *s.BlankTileNoDataValue
	}
	if s.BlankTileFormat != "" {
		spec.Format, _ = dem.ParseFormat(s.BlankTileFormat)
	}
	return spec
}

// ContourOptions converts the source's contour configuration into engine
// options. Sources without contour config get the default threshold table.
func (s *SourceConfig) ContourOptions() contour.Options {
	cc := s.Contours
	if cc == nil || (len(cc.Levels) == 0 && len(cc.Thresholds) == 0) {
		merged := ContoursConfig{Thresholds: defaultThresholds}
		if cc != nil {
			merged = *cc
			merged.Thresholds = defaultThresholds
		}
		cc = &merged
	}

	opts := contour.Options{
		Multiplier:   cc.Multiplier,
		Levels:       append([]float64(nil), cc.Levels...),
		ContourLayer: cc.ContourLayer,
		ElevationKey: cc.ElevationKey,
		LevelKey:     cc.LevelKey,
		Extent:       cc.Extent,
		Buffer:       cc.Buffer,
	}
	if len(cc.Thresholds) > 0 && len(cc.Levels) == 0 {
		opts.Thresholds = make(map[int][]float64, len(cc.Thresholds))
		for key, intervals := range cc.Thresholds {
			// Keys are validated as integers at load time.
			zoom, _ := strconv.Atoi(key)
			opts.Thresholds[zoom] = append([]float64(nil), intervals...)
		}
	}
	return opts
}
