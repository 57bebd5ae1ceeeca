// Package workflow drains the localization queue.
//
// A run claims pending items one at a time, dispatches each to the handler
// registered for its media kind (image overlay localization or video
// dubbing), and persists the outcome back to the queue. Failures are
// classified: validation and configuration problems park the item for
// operator review, everything else marks it failed and retryable.
//
// Runs are sequential on purpose. Every stage talks to rate-limited paid
// APIs or shells out to ffmpeg; item-level parallelism would multiply
// spend and trip provider ceilings without shortening wall time much.
package workflow
