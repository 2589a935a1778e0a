// Package config loads, validates, and defaults viddup configuration.
//
// Configuration lives in a TOML file (default ~/.config/viddup/config.toml)
// and is merged over built-in defaults; command-line flags override both.
// Validate enforces the parameter ranges the hashing pipeline depends on.
package config
