// Package services defines the shared error taxonomy and context plumbing used
// by the external-service clients and pipeline stages.
//
// Stage code wraps failures with one of the sentinel errors so the workflow
// manager can decide between retryable, reviewable, and terminal outcomes
// without string matching.
package services
