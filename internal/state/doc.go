// Package state persists the build state between catalog builds: the config
// fingerprint of the last build plus, per source file, its content fingerprint,
// hierarchy fingerprint and the artifact it was materialized as.
//
// Two backends are provided. JSONStore writes a single document atomically
// (temporary file then rename). SQLiteStore keeps the same data in two tables
// and replaces it inside one transaction.
package state
