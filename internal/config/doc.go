// Package config loads, validates, and stores mergeq's TOML configuration.
//
// Defaults live in defaults.go; Load overlays ~/.config/mergeq/config.toml (or
// an explicit path) on top of them, applies environment overrides, and
// validates the result. The GitHub token is never part of the file: it is
// read from GITHUB_API_TOKEN only when queue processing needs it.
package config
