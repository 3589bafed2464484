// Package session models chat sessions and the operations that manage them.
package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Record represents one chat session and its metadata as held by the
// remote session store.
type Record struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"createdAt"`
	FocusMode  string    `json:"focusMode"`
	Archived   bool      `json:"archived"`
	Shared     bool      `json:"shared"`
	OwnerToken string    `json:"token"`
}

// ErrMissingID is returned when a decoded record carries no id.
var ErrMissingID = errors.New("session record has no id")

// timestampLayouts are tried in order when decoding createdAt.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON accepts the flag columns either as booleans or as the 0/1
// integers the store uses on the wire.
func (r *Record) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID         string `json:"id"`
		Title      string `json:"title"`
		CreatedAt  string `json:"createdAt"`
		FocusMode  string `json:"focusMode"`
		Archived   flag   `json:"archived"`
		Shared     flag   `json:"shared"`
		OwnerToken string `json:"token"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.ID == "" {
		return ErrMissingID
	}

	createdAt, err := ParseTimestamp(wire.CreatedAt)
	if err != nil {
		return fmt.Errorf("session %s: %w", wire.ID, err)
	}

	*r = Record{
		ID:         wire.ID,
		Title:      wire.Title,
		CreatedAt:  createdAt,
		FocusMode:  wire.FocusMode,
		Archived:   bool(wire.Archived),
		Shared:     bool(wire.Shared),
		OwnerToken: wire.OwnerToken,
	}
	return nil
}

// ParseTimestamp parses the createdAt representations the store emits.
func ParseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid createdAt %q", value)
}

// flag decodes true/false, 0/1 and null.
type flag bool

func (f *flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "null", "false", "0":
		*f = false
		return nil
	case "true", "1":
		*f = true
		return nil
	}
	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid flag value %s", data)
	}
	*f = n != 0
	return nil
}

// IDs returns the ids of records in order.
func IDs(records []Record) []string {
	ids := make([]string, len(records))
	for i := range records {
		ids[i] = records[i].ID
	}
	return ids
}
