// Package config loads and validates the catalog builder configuration.
package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/catalogbuilder/internal/catalog"
	ferrors "git.home.luguber.info/inful/catalogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/catalogbuilder/internal/hierarchy"
)

// DefaultFilename is looked up in the working directory when no --config is given.
const DefaultFilename = "catalogbuilder.yaml"

// Config is the complete configuration of one catalog.
type Config struct {
	Sources   SourcesConfig     `yaml:"sources"`
	Output    OutputConfig      `yaml:"output"`
	Catalog   CatalogConfig     `yaml:"catalog"`
	Hierarchy []LevelConfig     `yaml:"hierarchy"`
	Mapping   map[string]string `yaml:"mapping"`
	Metrics   MetricsConfig     `yaml:"metrics"`
	Events    EventsConfig      `yaml:"events"`
	Daemon    DaemonConfig      `yaml:"daemon"`

	// baseDir is the directory relative paths are resolved against.
	baseDir string
}

// SourcesConfig describes where source documents come from.
type SourcesConfig struct {
	Directory  string   `yaml:"directory"`
	Extensions []string `yaml:"extensions,omitempty"`
	// Prefix keeps only files whose name starts with it.
	Prefix string `yaml:"prefix,omitempty"`
	// Ignore holds glob patterns matched against relative paths and names.
	Ignore      []string        `yaml:"ignore,omitempty"`
	Fingerprint FingerprintMode `yaml:"fingerprint,omitempty"`
	// SummaryFallback uses the first paragraph when no description is mapped.
	SummaryFallback bool `yaml:"summary_fallback,omitempty"`
}

// OutputConfig describes where the catalog and its state are written.
type OutputConfig struct {
	Directory    string       `yaml:"directory"`
	StateFile    string       `yaml:"state_file,omitempty"`
	StateBackend StateBackend `yaml:"state_backend,omitempty"`
}

// CatalogConfig shapes the generated artifacts.
type CatalogConfig struct {
	RootIdentifier         string           `yaml:"root_identifier" json:"root_identifier"`
	RootTitle              string           `yaml:"root_title" json:"root_title"`
	RootDescription        string           `yaml:"root_description,omitempty" json:"root_description,omitempty"`
	RepresentativeLanguage string           `yaml:"representative_language,omitempty" json:"representative_language"`
	Namespaces             NamespacesConfig `yaml:"namespaces,omitempty" json:"namespaces"`
}

// NamespacesConfig holds the XML namespaces of the term blocks.
type NamespacesConfig struct {
	DublinCore string `yaml:"dc" json:"dc"`
	Extensions string `yaml:"ex" json:"ex"`
}

// LevelConfig is one hierarchy level.
type LevelConfig struct {
	Key       string `yaml:"key" json:"key"`
	Title     string `yaml:"title,omitempty" json:"title"`
	Slug      string `yaml:"slug" json:"slug"`
	IfMissing string `yaml:"if_missing,omitempty" json:"if_missing"`
}

// MetricsConfig enables the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// EventsConfig enables build notifications over NATS.
type EventsConfig struct {
	NATSURL   string        `yaml:"nats_url,omitempty"`
	Subject   string        `yaml:"subject,omitempty"`
	JetStream bool          `yaml:"jetstream,omitempty"`
	KVBucket  string        `yaml:"kv_bucket,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

// DaemonConfig controls continuous builds.
type DaemonConfig struct {
	// Interval schedules periodic rebuilds; zero disables them.
	Interval time.Duration `yaml:"interval,omitempty"`
	// Debounce collapses bursts of file events into one build.
	Debounce time.Duration `yaml:"debounce,omitempty"`
	// Watch enables filesystem watching; defaults to true.
	Watch *bool `yaml:"watch,omitempty"`
}

// WatchEnabled reports whether the daemon watches the source directory.
func (d DaemonConfig) WatchEnabled() bool {
	return d.Watch == nil || *d.Watch
}

// Load reads the configuration at path. Environment files next to it are
// loaded first so ${VAR} references in the YAML resolve.
func Load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to resolve configuration path").
			WithContext("path", path).Build()
	}
	baseDir := filepath.Dir(abs)
	if err := loadEnvFiles(baseDir); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(abs) // #nosec G304 -- path is supplied by the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ferrors.NotFoundError("configuration file not found").
				WithContext("path", abs).
				WithContext("hint", "run 'catalogbuilder init' to create one").Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read configuration").
			WithContext("path", abs).Build()
	}
	return Parse(data, baseDir)
}

// Parse decodes YAML configuration, applies defaults, resolves relative paths
// against baseDir and validates the result.
func Parse(data []byte, baseDir string) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse configuration").
			Fatal().UserAction().Build()
	}
	cfg.baseDir = baseDir

	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	cfg.resolvePaths()
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// BaseDir returns the directory relative paths were resolved against.
func (c *Config) BaseDir() string { return c.baseDir }

// HierarchySpec builds the validated hierarchy definition.
func (c *Config) HierarchySpec() (*hierarchy.Spec, error) {
	levels := make([]hierarchy.Level, 0, len(c.Hierarchy))
	for _, l := range c.Hierarchy {
		levels = append(levels, hierarchy.Level{
			Key:       l.Key,
			Title:     l.Title,
			Slug:      l.Slug,
			IfMissing: hierarchy.MissingPolicy(l.IfMissing),
		})
	}
	return hierarchy.NewSpec(levels, c.Catalog.RepresentativeLanguage)
}

// Namespaces returns the XML namespaces of the term blocks.
func (c *Config) Namespaces() catalog.Namespaces {
	return catalog.Namespaces{
		DublinCore: c.Catalog.Namespaces.DublinCore,
		Extensions: c.Catalog.Namespaces.Extensions,
	}
}

func (c *Config) resolvePaths() {
	c.Sources.Directory = c.resolve(c.Sources.Directory)
	c.Output.Directory = c.resolve(c.Output.Directory)
	c.Output.StateFile = c.resolve(c.Output.StateFile)
	if c.Metrics.Textfile != "" {
		c.Metrics.Textfile = c.resolve(c.Metrics.Textfile)
	}
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.baseDir, p)
}
