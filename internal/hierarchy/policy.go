package hierarchy

import (
	"git.home.luguber.info/inful/catalogbuilder/internal/foundation/normalization"
)

// MissingPolicy decides what happens to a record that lacks the field of a level.
type MissingPolicy string

const (
	// Skip leaves the record out of the catalog entirely.
	Skip MissingPolicy = "skip"
	// AttachToParent places the record one level up, bypassing this level.
	AttachToParent MissingPolicy = "attach_to_parent"
	// CreateUnknown groups the record under a synthetic "Unknown <slug>" group.
	CreateUnknown MissingPolicy = "create_unknown"
)

var policyNormalizer = normalization.NewNormalizer(map[string]MissingPolicy{
	"skip":             Skip,
	"attach_to_parent": AttachToParent,
	"create_unknown":   CreateUnknown,
}, CreateUnknown)

// ParsePolicy normalizes a configured policy name. Blank input selects CreateUnknown.
func ParsePolicy(raw string) (MissingPolicy, error) {
	return policyNormalizer.NormalizeWithError(raw)
}
