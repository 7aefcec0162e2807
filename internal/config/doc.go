// Package config loads, normalizes, and validates the vidshelf TOML
// configuration. Loading never mutates global state; callers receive a
// run-scoped Config value and pass it down explicitly.
package config
