package store

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format used for scheduled dates.
const DateLayout = "2006-01-02"

// ErrorTimeLayout prefixes each error log entry.
const ErrorTimeLayout = "2006-01-02 15:04"

// Post is one row of the post table.
type Post struct {
	ID         int64
	FolderID   string
	FolderName string
	// ChunkIndex is 1-based; ChunkCount > 1 means the folder was split.
	ChunkIndex     int
	ChunkCount     int
	ImageCount     int
	FirstPhotoDate time.Time
	WorkName       string
	// ScheduledDate is a DateLayout string, empty when unscheduled.
	ScheduledDate   string
	Skip            bool
	Caption         string
	Tags            string
	InstagramPosted bool
	InstagramPostID string
	XPosted         bool
	XPostID         string
	ErrorLog        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FullyPosted reports whether both platforms have published the row.
func (p *Post) FullyPosted() bool {
	return p.InstagramPosted && p.XPosted
}

// Errors splits the error log into entries, oldest first.
func (p *Post) Errors() []string {
	if strings.TrimSpace(p.ErrorLog) == "" {
		return nil
	}
	return strings.Split(p.ErrorLog, "\n")
}

// Details carries operator edits. Nil fields are left unchanged.
type Details struct {
	WorkName      *string
	ScheduledDate *string
	Skip          *bool
	Caption       *string
	Tags          *string
}

// Summary aggregates the table for status output.
type Summary struct {
	Total       int
	Unscheduled int
	Skipped     int
	Pending     int
	Posted      int
	WithErrors  int
}

// FormatErrorEntry renders one error log line.
func FormatErrorEntry(at time.Time, message string) string {
	return at.Format(ErrorTimeLayout) + " | " + strings.TrimSpace(message)
}
