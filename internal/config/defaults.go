package config

import (
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/catalogbuilder/internal/catalog"
	ferrors "git.home.luguber.info/inful/catalogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/catalogbuilder/internal/hierarchy"
	"git.home.luguber.info/inful/catalogbuilder/internal/source"
)

// Default values applied when the configuration leaves a setting empty.
const (
	DefaultSourceDir       = "docs"
	DefaultOutputDir       = "catalog"
	DefaultStateDir        = ".catalogbuilder"
	DefaultRootIdentifier  = "root"
	DefaultRootTitle       = "Catalog"
	DefaultLanguage        = "en"
	DefaultEventsSubject   = "catalogbuilder.builds"
	DefaultEventsTimeout   = 5 * time.Second
	DefaultDaemonDebounce  = 2 * time.Second
	defaultStateFileJSON   = "state.json"
	defaultStateFileSQLite = "state.db"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// SourcesDefaultApplier handles source scanning defaults.
type SourcesDefaultApplier struct{}

func (s *SourcesDefaultApplier) Domain() string { return "sources" }

func (s *SourcesDefaultApplier) ApplyDefaults(cfg *Config) error {
	if strings.TrimSpace(cfg.Sources.Directory) == "" {
		cfg.Sources.Directory = DefaultSourceDir
	}
	if len(cfg.Sources.Extensions) == 0 {
		cfg.Sources.Extensions = append([]string(nil), source.DefaultExtensions...)
	}
	for i, ext := range cfg.Sources.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.Sources.Extensions[i] = ext
	}
	mode, err := NormalizeFingerprintMode(string(cfg.Sources.Fingerprint))
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid sources.fingerprint").
			Fatal().UserAction().Build()
	}
	cfg.Sources.Fingerprint = mode
	return nil
}

// OutputDefaultApplier handles catalog and state location defaults.
type OutputDefaultApplier struct{}

func (o *OutputDefaultApplier) Domain() string { return "output" }

func (o *OutputDefaultApplier) ApplyDefaults(cfg *Config) error {
	if strings.TrimSpace(cfg.Output.Directory) == "" {
		cfg.Output.Directory = DefaultOutputDir
	}
	backend, err := NormalizeStateBackend(string(cfg.Output.StateBackend))
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid output.state_backend").
			Fatal().UserAction().Build()
	}
	cfg.Output.StateBackend = backend
	if strings.TrimSpace(cfg.Output.StateFile) == "" {
		name := defaultStateFileJSON
		if backend == StateBackendSQLite {
			name = defaultStateFileSQLite
		}
		cfg.Output.StateFile = filepath.Join(DefaultStateDir, name)
	}
	return nil
}

// CatalogDefaultApplier handles root collection and namespace defaults.
type CatalogDefaultApplier struct{}

func (c *CatalogDefaultApplier) Domain() string { return "catalog" }

func (c *CatalogDefaultApplier) ApplyDefaults(cfg *Config) error {
	cat := &cfg.Catalog
	if strings.TrimSpace(cat.RootIdentifier) == "" {
		cat.RootIdentifier = DefaultRootIdentifier
	}
	if strings.TrimSpace(cat.RootTitle) == "" {
		cat.RootTitle = DefaultRootTitle
	}
	if strings.TrimSpace(cat.RepresentativeLanguage) == "" {
		cat.RepresentativeLanguage = DefaultLanguage
	}
	ns := catalog.DefaultNamespaces()
	if cat.Namespaces.DublinCore == "" {
		cat.Namespaces.DublinCore = ns.DublinCore
	}
	if cat.Namespaces.Extensions == "" {
		cat.Namespaces.Extensions = ns.Extensions
	}
	return nil
}

// HierarchyDefaultApplier normalizes level settings.
type HierarchyDefaultApplier struct{}

func (h *HierarchyDefaultApplier) Domain() string { return "hierarchy" }

func (h *HierarchyDefaultApplier) ApplyDefaults(cfg *Config) error {
	for i := range cfg.Hierarchy {
		lvl := &cfg.Hierarchy[i]
		lvl.Key = strings.TrimSpace(lvl.Key)
		lvl.Slug = strings.TrimSpace(lvl.Slug)
		policy, err := hierarchy.ParsePolicy(lvl.IfMissing)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid if_missing policy").
				Fatal().UserAction().WithContext("level", i).Build()
		}
		lvl.IfMissing = string(policy)
	}
	return nil
}

// IntegrationDefaultApplier handles events and daemon defaults.
type IntegrationDefaultApplier struct{}

func (d *IntegrationDefaultApplier) Domain() string { return "integration" }

func (d *IntegrationDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Events.Subject == "" {
		cfg.Events.Subject = DefaultEventsSubject
	}
	if cfg.Events.Timeout == 0 {
		cfg.Events.Timeout = DefaultEventsTimeout
	}
	if cfg.Daemon.Debounce == 0 {
		cfg.Daemon.Debounce = DefaultDaemonDebounce
	}
	return nil
}

func defaultAppliers() []DefaultApplier {
	return []DefaultApplier{
		&SourcesDefaultApplier{},
		&OutputDefaultApplier{},
		&CatalogDefaultApplier{},
		&HierarchyDefaultApplier{},
		&IntegrationDefaultApplier{},
	}
}

func applyDefaults(cfg *Config) error {
	for _, applier := range defaultAppliers() {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}
