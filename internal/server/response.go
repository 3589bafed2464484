package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/guilhermegouw/chatkeeper/internal/session"
	"github.com/guilhermegouw/chatkeeper/internal/store"
)

// chat is the wire form of a session. Flags are 0/1 integers.
type chat struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt"`
	FocusMode string `json:"focusMode"`
	Archived  int    `json:"archived"`
	Shared    int    `json:"shared"`
	Token     string `json:"token"`
}

func chatFromRecord(rec session.Record) chat {
	return chat{
		ID:        rec.ID,
		Title:     rec.Title,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		FocusMode: rec.FocusMode,
		Archived:  boolInt(rec.Archived),
		Shared:    boolInt(rec.Shared),
		Token:     rec.OwnerToken,
	}
}

func chatsFromRecords(records []session.Record) []chat {
	out := make([]chat, len(records))
	for i := range records {
		out[i] = chatFromRecord(records[i])
	}
	return out
}

type exportedChat struct {
	chat
	Messages []store.Message `json:"messages"`
}

type exportDocument struct {
	ExportedAt time.Time      `json:"exportedAt"`
	Chats      []exportedChat `json:"chats"`
}

// writeJSON sends v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client went away
}

// writeError sends {"message": msg}.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func ok(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
