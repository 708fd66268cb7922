// Package config loads, normalizes, and validates bookforge configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads optional .env files, and overlays the
// OPENAI_* environment variables used by the language-model and speech
// services. The Config type centralizes every knob the CLI needs so it can be
// built once at startup and passed by reference to every collaborator.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config
