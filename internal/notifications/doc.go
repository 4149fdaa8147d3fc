// Package notifications delivers operator alerts via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Each event kind
// can be switched off individually through the notifications section, so a
// quiet setup can keep error alerts while dropping per-post chatter.
package notifications
