package recipients

import (
	"encoding/json"
	"strings"
)

// AuthorRecord is one contact row: the author IDs it covers, where to mail
// and the display name.
type AuthorRecord struct {
	AuthorIDs []string `json:"authorIds"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
}

// Work is a finished piece. More than one author ID marks a collaboration.
type Work struct {
	Title     string   `json:"title"`
	AuthorIDs []string `json:"authorIds"`
}

// Notification is the message plan for one recipient.
type Notification struct {
	Recipient  AuthorRecord
	Works      []Work
	Salutation string
}

// UnmarshalJSON decodes a record, treating a missing or non-list authorIds
// as empty so one malformed row never fails a whole batch.
func (r *AuthorRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		AuthorIDs json.RawMessage `json:"authorIds"`
		Email     string          `json:"email"`
		Name      string          `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.AuthorIDs = decodeIDs(raw.AuthorIDs)
	r.Email = strings.TrimSpace(raw.Email)
	r.Name = raw.Name
	return nil
}

// UnmarshalJSON decodes a work with the same authorIds tolerance as AuthorRecord.
func (w *Work) UnmarshalJSON(data []byte) error {
	var raw struct {
		Title     string          `json:"title"`
		AuthorIDs json.RawMessage `json:"authorIds"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	w.Title = raw.Title
	w.AuthorIDs = decodeIDs(raw.AuthorIDs)
	return nil
}

// decodeIDs keeps the non-empty string elements of a JSON list. Anything
// other than a list yields an empty set.
func decodeIDs(raw json.RawMessage) []string {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return []string{}
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		var id string
		if json.Unmarshal(item, &id) != nil {
			continue
		}
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
