package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/catalogbuilder/internal/foundation/errors"
)

// Example returns the configuration written by Init.
func Example() *Config {
	return &Config{
		Sources: SourcesConfig{
			Directory:   "./docs",
			Extensions:  []string{".md", ".markdown"},
			Fingerprint: "mtime",
		},
		Output: OutputConfig{
			Directory:    "./catalog",
			StateFile:    "./.catalogbuilder/state.json",
			StateBackend: StateBackendJSON,
		},
		Catalog: CatalogConfig{
			RootIdentifier:         DefaultRootIdentifier,
			RootTitle:              DefaultRootTitle,
			RepresentativeLanguage: DefaultLanguage,
		},
		Hierarchy: []LevelConfig{
			{Key: "ex:corpus", Title: "Corpus", Slug: "corpus", IfMissing: "create_unknown"},
			{Key: "dc:creator", Title: "Author", Slug: "author", IfMissing: "create_unknown"},
			{Key: "ex:work", Title: "Work", Slug: "work", IfMissing: "attach_to_parent"},
		},
		Mapping: map[string]string{
			"title":       "title",
			"description": "description",
			"workTitle":   "work_title",
			"dc:creator":  "author",
			"dc:date":     "year",
			"ex:corpus":   "corpus",
			"ex:work":     "work",
		},
		Events: EventsConfig{Subject: DefaultEventsSubject},
		Daemon: DaemonConfig{Debounce: DefaultDaemonDebounce},
	}
}

// Init writes the example configuration to configPath.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ValidationError("configuration file already exists").
			WithContext("path", configPath).
			WithContext("hint", "use --force to overwrite").Build()
	}

	data, err := yaml.Marshal(Example())
	if err != nil {
		return ferrors.InternalError("failed to marshal example configuration").WithCause(err).Build()
	}
	if dir := filepath.Dir(configPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return ferrors.FileSystemError("failed to create configuration directory").WithCause(err).
				WithContext("path", dir).Build()
		}
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return ferrors.FileSystemError("failed to write configuration").WithCause(err).
			WithContext("path", configPath).Build()
	}
	return nil
}
