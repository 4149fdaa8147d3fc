// Package services defines shared utilities consumed by the platform clients
// and the posting workflow.
//
// Key responsibilities:
//   - Context helpers that stamp post row IDs, platform names and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures with errors.Is instead of string matching.
//
// Platform integrations live in subpackages (instagram, xapi).
package services
