// Package config loads, normalizes, and validates redub's TOML configuration.
//
// Load resolves the config path (explicit flag, then ~/.config/redub, then a
// project-local redub.toml), decodes on top of Default(), expands all path
// fields, pulls missing credentials from the environment, and validates the
// result so missing required settings surface before any item is processed.
package config
