// Package xapi posts to X with OAuth 1.0a user-context credentials.
//
// Media goes through the v1.1 upload endpoint; tweets are created through
// the v2 API referencing the uploaded media IDs.
package xapi
