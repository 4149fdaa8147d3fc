// Package config loads, normalizes, and validates autopost configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for every
// credential (INSTAGRAM_ACCESS_TOKEN, X_API_KEY, R2_SECRET_ACCESS_KEY, ...).
// The Config type is built once at process start and handed to each component
// by pointer; nothing downstream performs ambient key lookups.
//
// Credentials are only checked when a component needs them (RequireInstagram,
// RequireX, RequireR2, RequireMail) so offline commands such as grouping work
// without any platform account configured.
package config
