package models

import "errors"

// Sentinel errors shared across storage backends and the engine.
// Batch callers treat ErrDealNotFound and ErrDealTerminal as skips rather
// than failures; everything else counts as a per-item failure.
var (
	// ErrDealNotFound means the referenced deal no longer exists
	// (e.g. deleted concurrently). Benign for batch callers.
	ErrDealNotFound = errors.New("deal not found")

	// ErrDealTerminal means the deal is accepted, declined, or archived;
	// recalculation is meaningless and is skipped.
	ErrDealTerminal = errors.New("deal in terminal state")

	// ErrNotReady is returned by the worker while storage is still
	// initializing.
	ErrNotReady = errors.New("service not ready")
)
