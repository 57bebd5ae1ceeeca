// Package queue persists media items awaiting localization in SQLite.
//
// Each item tracks one scraped post asset (an image or a video), its lifecycle
// status, and the result of its pipeline run: output path, fallback flag,
// accumulated warnings, and cost estimate. The store is the only cross-item
// shared state in the system; pipeline runs themselves own per-item working
// directories exclusively.
package queue
