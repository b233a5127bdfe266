package config

import (
	"path/filepath"
	"strings"

	ferrors "git.home.luguber.info/inful/catalogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/catalogbuilder/internal/record"
	"git.home.luguber.info/inful/catalogbuilder/internal/util/sets"
)

// Validate checks cfg after defaults are applied. Every failure is a fatal
// configuration error, reported before anything touches the filesystem.
func Validate(cfg *Config) error {
	return newConfigurationValidator(cfg).validate()
}

// configurationValidator coordinates validation across configuration domains.
type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validateHierarchy(); err != nil {
		return err
	}
	if err := cv.validateMapping(); err != nil {
		return err
	}
	if err := cv.validateEnums(); err != nil {
		return err
	}
	if err := cv.validatePaths(); err != nil {
		return err
	}
	return cv.validateIntegration()
}

// validateHierarchy applies the level rules of hierarchy.NewSpec.
func (cv *configurationValidator) validateHierarchy() error {
	_, err := cv.config.HierarchySpec()
	return err
}

func (cv *configurationValidator) validateMapping() error {
	produced := sets.New[string]()
	for term, key := range cv.config.Mapping {
		if strings.TrimSpace(term) == "" || strings.TrimSpace(key) == "" {
			return ferrors.ConfigError("mapping entries need a term and a frontmatter key").
				WithContext("term", term).Build()
		}
		produced.Add(record.FieldName(term))
	}
	for i, lvl := range cv.config.Hierarchy {
		if !produced.Has(record.FieldName(lvl.Key)) {
			return ferrors.ConfigError("missing required hierarchy field in mapping").
				WithContext("level", i).
				WithContext("key", lvl.Key).Build()
		}
	}
	return nil
}

func (cv *configurationValidator) validateEnums() error {
	if _, err := NormalizeStateBackend(string(cv.config.Output.StateBackend)); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid output.state_backend").
			Fatal().UserAction().Build()
	}
	if _, err := NormalizeFingerprintMode(string(cv.config.Sources.Fingerprint)); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid sources.fingerprint").
			Fatal().UserAction().Build()
	}
	return nil
}

// validatePaths rejects layouts where emptying the output directory would
// delete any input of the build.
func (cv *configurationValidator) validatePaths() error {
	src := cv.config.Sources.Directory
	out := cv.config.Output.Directory
	statePath := cv.config.Output.StateFile

	switch {
	case out == src:
		return ferrors.ConfigError("output.directory must differ from sources.directory").
			WithContext("path", out).Build()
	case within(src, out):
		return ferrors.ConfigError("output.directory must not contain sources.directory").
			WithContext("output", out).WithContext("sources", src).Build()
	case cv.config.baseDir != "" && (out == cv.config.baseDir || within(cv.config.baseDir, out)):
		return ferrors.ConfigError("output.directory must not contain the configuration directory").
			WithContext("output", out).Build()
	case within(statePath, out):
		return ferrors.ConfigError("output.state_file must live outside output.directory").
			WithContext("state_file", statePath).Build()
	case cv.config.Metrics.Textfile != "" && within(cv.config.Metrics.Textfile, out):
		return ferrors.ConfigError("metrics.textfile must live outside output.directory").
			WithContext("textfile", cv.config.Metrics.Textfile).Build()
	}
	return nil
}

func (cv *configurationValidator) validateIntegration() error {
	d := cv.config.Daemon
	if d.Interval < 0 || d.Debounce < 0 {
		return ferrors.ConfigError("daemon durations must not be negative").Build()
	}
	if cv.config.Events.Timeout < 0 {
		return ferrors.ConfigError("events.timeout must not be negative").Build()
	}
	if cv.config.Events.NATSURL != "" && strings.TrimSpace(cv.config.Events.Subject) == "" {
		return ferrors.ConfigError("events.subject is required when events.nats_url is set").Build()
	}
	return nil
}

// within reports whether child lies strictly below parent.
func within(child, parent string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
