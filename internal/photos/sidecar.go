package photos

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sidecar is the capture metadata exported next to an image.
type Sidecar struct {
	// Title is the original file name the record describes.
	Title      string
	PhotoTaken time.Time
	Created    time.Time
}

type sidecarTimestamp struct {
	Timestamp json.RawMessage `json:"timestamp"`
}

type sidecarPayload struct {
	Title          string            `json:"title"`
	PhotoTakenTime *sidecarTimestamp `json:"photoTakenTime"`
	CreationTime   *sidecarTimestamp `json:"creationTime"`
}

// ParseSidecar decodes a Google Takeout style metadata record. Timestamps are
// epoch seconds encoded as either strings or numbers.
func ParseSidecar(data []byte) (Sidecar, error) {
	var payload sidecarPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Sidecar{}, fmt.Errorf("decode sidecar: %w", err)
	}
	title := strings.TrimSpace(payload.Title)
	if title == "" {
		return Sidecar{}, fmt.Errorf("decode sidecar: missing title")
	}
	out := Sidecar{Title: title}
	if payload.PhotoTakenTime != nil {
		out.PhotoTaken = parseEpoch(payload.PhotoTakenTime.Timestamp)
	}
	if payload.CreationTime != nil {
		out.Created = parseEpoch(payload.CreationTime.Timestamp)
	}
	return out, nil
}

func parseEpoch(raw json.RawMessage) time.Time {
	value := string(bytes.Trim(bytes.TrimSpace(raw), `"`))
	if value == "" || value == "null" {
		return time.Time{}
	}
	secs, err := strconv.ParseInt(value, 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}

// SidecarIndex maps a declared original file name to its metadata. Later
// additions for the same name replace earlier ones.
type SidecarIndex map[string]Sidecar

// Add records s under its title.
func (idx SidecarIndex) Add(s Sidecar) {
	idx[s.Title] = s
}

// TakenTime resolves the capture time for fileName: sidecar photo-taken time,
// then sidecar creation time, then fallback.
func (idx SidecarIndex) TakenTime(fileName string, fallback time.Time) time.Time {
	s, ok := idx[fileName]
	if !ok {
		return fallback
	}
	if !s.PhotoTaken.IsZero() {
		return s.PhotoTaken
	}
	if !s.Created.IsZero() {
		return s.Created
	}
	return fallback
}
