// Package language normalizes language identifiers across the pipeline's
// external services, which variously want ISO 639-1 codes, 639-2 codes, or
// full names in prompts.
package language
