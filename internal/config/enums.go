package config

import (
	"git.home.luguber.info/inful/catalogbuilder/internal/extract"
	"git.home.luguber.info/inful/catalogbuilder/internal/foundation/normalization"
)

// FingerprintMode selects how source changes are detected.
type FingerprintMode = extract.FingerprintMode

// StateBackend selects where the build state is persisted.
type StateBackend string

const (
	StateBackendJSON   StateBackend = "json"
	StateBackendSQLite StateBackend = "sqlite"
)

var (
	fingerprintNormalizer = normalization.NewNormalizer(map[string]FingerprintMode{
		"mtime":   extract.FingerprintMTime,
		"modtime": extract.FingerprintMTime,
		"content": extract.FingerprintContent,
		"digest":  extract.FingerprintContent,
	}, extract.FingerprintMTime)

	backendNormalizer = normalization.NewNormalizer(map[string]StateBackend{
		"json":    StateBackendJSON,
		"sqlite":  StateBackendSQLite,
		"sqlite3": StateBackendSQLite,
	}, StateBackendJSON)
)

// NormalizeFingerprintMode returns the canonical mode for raw.
func NormalizeFingerprintMode(raw string) (FingerprintMode, error) {
	return fingerprintNormalizer.NormalizeWithError(raw)
}

// NormalizeStateBackend returns the canonical backend for raw.
func NormalizeStateBackend(raw string) (StateBackend, error) {
	return backendNormalizer.NormalizeWithError(raw)
}
