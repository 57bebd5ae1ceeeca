// Package preflight provides readiness checks for external services
// and filesystem paths that redub depends on.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll before draining the queue.
//     If a required check fails, the run halts before any item is touched.
//   - The CLI "redub status" command uses individual check functions
//     (CheckVisionAPI, CheckDirectoryAccess) to display service health.
//
// Checks are gated by their config toggles -- disabled features are skipped.
package preflight
