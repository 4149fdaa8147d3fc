// Package store persists the post table in SQLite.
//
// Each row is one planned post: a source folder (or a slice of one when the
// folder holds more images than a carousel allows), the schedule and caption
// fields the operator edits, and per-platform publish state. Error messages
// accumulate in a timestamped, newline separated log on the row.
//
// Schema changes bump schemaVersion in schema.go. Unlike a work queue the post
// table is long lived, so a mismatch is reported instead of silently reset.
package store
