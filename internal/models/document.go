package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/habitual/internal/constants"
)

// Datetime is a timestamp that travels as a fixed-width UTC string.
type Datetime struct {
	time.Time
}

// NewDatetime truncates t to millisecond precision, the backend's resolution.
func NewDatetime(t time.Time) Datetime {
	return Datetime{Time: t.Truncate(time.Millisecond)}
}

// String formats the timestamp in the wire format.
func (d Datetime) String() string {
	if d.IsZero() {
		return ""
	}
	return FormatDatetime(d.Time)
}

func (d Datetime) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Datetime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		if string(data) == "null" {
			d.Time = time.Time{}
			return nil
		}
		return err
	}
	if strings.TrimSpace(s) == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := ParseDatetime(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// FormatDatetime formats t in UTC using the wire format.
func FormatDatetime(t time.Time) string {
	return t.UTC().Format(constants.DatetimeFormat)
}

// ParseDatetime accepts the wire format and the offset form the hosted
// backend returns ("2024-05-01T10:00:00.000+00:00").
func ParseDatetime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid datetime %q: %w", s, err)
	}
	return t, nil
}

// StartOfDay returns local wall-clock midnight of the day containing t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Meta holds the system attributes every document carries.
type Meta struct {
	ID           string   `json:"$id"`
	CollectionID string   `json:"$collectionId,omitempty"`
	DatabaseID   string   `json:"$databaseId,omitempty"`
	CreatedAt    Datetime `json:"$createdAt"`
	UpdatedAt    Datetime `json:"$updatedAt"`
}

// DocumentID returns the document's identifier.
func (m Meta) DocumentID() string {
	return m.ID
}
