package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"maps"
	"slices"
)

type mappingEntry struct {
	Term string `json:"term"`
	Key  string `json:"key"`
}

type fingerprintInput struct {
	Hierarchy   []LevelConfig   `json:"hierarchy"`
	Mapping     []mappingEntry  `json:"mapping"`
	Catalog     CatalogConfig   `json:"catalog"`
	Fingerprint FingerprintMode `json:"fingerprint"`
	Summary     bool            `json:"summary_fallback"`
}

// Fingerprint hashes the settings that shape generated artifacts. Paths,
// metrics, events and daemon settings are excluded, so changing them never
// invalidates the catalog.
func (c *Config) Fingerprint() string {
	in := fingerprintInput{
		Hierarchy:   c.Hierarchy,
		Catalog:     c.Catalog,
		Fingerprint: c.Sources.Fingerprint,
		Summary:     c.Sources.SummaryFallback,
	}
	for _, term := range slices.Sorted(maps.Keys(c.Mapping)) {
		in.Mapping = append(in.Mapping, mappingEntry{Term: term, Key: c.Mapping[term]})
	}
	// Marshal cannot fail on these plain types.
	data, _ := json.Marshal(in)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
