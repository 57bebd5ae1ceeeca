// Command redub is the CLI for the media localization pipeline: enqueue
// images and videos, drain the queue, and inspect service readiness.
package main
