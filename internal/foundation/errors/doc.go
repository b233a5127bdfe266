// Package errors provides classified error primitives used across the catalog builder.
//
// A ClassifiedError carries a category (config, validation, filesystem, state, ...),
// a severity and a retry hint. The CLI adapter maps categories to process exit codes.
//
//	err := errors.StateError("failed to save build state").
//		WithContext("path", statePath).
//		Build()
package errors
