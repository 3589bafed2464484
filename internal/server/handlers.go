package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/guilhermegouw/chatkeeper/internal/debug"
	"github.com/guilhermegouw/chatkeeper/internal/session"
	"github.com/guilhermegouw/chatkeeper/internal/store"
)

// Store is the persistence the chats API is served from.
type Store interface {
	Create(ctx context.Context, p store.CreateParams) (session.Record, error)
	List(ctx context.Context, ownerToken string, archived bool) ([]session.Record, error)
	ListShared(ctx context.Context, ownerToken string) ([]session.Record, error)
	SetArchived(ctx context.Context, id string, archived bool) error
	SetShared(ctx context.Context, id string, shared bool) error
	Rename(ctx context.Context, id, title string) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context, ownerToken string) (int64, error)
	AppendMessage(ctx context.Context, sessionID string, role store.Role, content string) (store.Message, error)
	Export(ctx context.Context, ownerToken string) ([]store.ChatExport, error)
}

type chatsHandler struct {
	store     Store
	metrics   *Metrics
	validate  *validator.Validate
	publicURL string
	now       func() time.Time
}

// Owner tokens share the {key} routing segment with the bulk routes, so
// their names cannot be tokens and neither can anything holding a slash.
type createRequest struct {
	Token        string `json:"token" validate:"required,excludes=/,ne=export,ne=deleteAll"`
	FocusMode    string `json:"focusMode"`
	Title        string `json:"title" validate:"max=200"`
	FirstMessage string `json:"firstMessage"`
}

type renameRequest struct {
	Title string `json:"title" validate:"required,max=200"`
}

type messageRequest struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required"`
}

func (h *chatsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !h.decode(w, r, &req) {
		return
	}

	rec, err := h.store.Create(r.Context(), store.CreateParams{
		OwnerToken:   req.Token,
		FocusMode:    req.FocusMode,
		Title:        req.Title,
		FirstMessage: req.FirstMessage,
	})
	if err != nil {
		h.fail(w, "create", err)
		return
	}
	h.metrics.sessionChanged("created")
	writeJSON(w, http.StatusCreated, map[string]chat{"chat": chatFromRecord(rec)})
}

func (h *chatsHandler) listActive(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(ctx context.Context, token string) ([]session.Record, error) {
		return h.store.List(ctx, token, false)
	})
}

func (h *chatsHandler) listArchived(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(ctx context.Context, token string) ([]session.Record, error) {
		return h.store.List(ctx, token, true)
	})
}

func (h *chatsHandler) listShared(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.store.ListShared)
}

func (h *chatsHandler) list(w http.ResponseWriter, r *http.Request, fetch func(context.Context, string) ([]session.Record, error)) {
	records, err := fetch(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.fail(w, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]chat{"chats": chatsFromRecords(records)})
}

func (h *chatsHandler) setArchived(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Archived json.RawMessage `json:"archived"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	archived, err := parseFlag(req.Archived)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.SetArchived(r.Context(), chi.URLParam(r, "key"), archived); err != nil {
		h.fail(w, "archive", err)
		return
	}
	if archived {
		h.metrics.sessionChanged("archived")
	} else {
		h.metrics.sessionChanged("unarchived")
	}
	ok(w)
}

func (h *chatsHandler) setShared(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Shared json.RawMessage `json:"shared"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	shared, err := parseFlag(req.Shared)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := chi.URLParam(r, "key")
	if err := h.store.SetShared(r.Context(), id, shared); err != nil {
		h.fail(w, "share", err)
		return
	}
	if !shared {
		h.metrics.sessionChanged("unshared")
		ok(w)
		return
	}
	h.metrics.sessionChanged("shared")
	writeJSON(w, http.StatusOK, map[string]string{"shareUrl": h.shareURL(r, id)})
}

func (h *chatsHandler) rename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if !h.decode(w, r, &req) {
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, "title must not be empty")
		return
	}

	if err := h.store.Rename(r.Context(), chi.URLParam(r, "key"), title); err != nil {
		h.fail(w, "rename", err)
		return
	}
	h.metrics.sessionChanged("renamed")
	ok(w)
}

func (h *chatsHandler) deleteOne(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "key")); err != nil {
		h.fail(w, "delete", err)
		return
	}
	h.metrics.sessionChanged("deleted")
	ok(w)
}

func (h *chatsHandler) deleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.DeleteAll(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.fail(w, "delete all", err)
		return
	}
	h.metrics.SessionChanges.WithLabelValues("deleted").Add(float64(n))
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (h *chatsHandler) export(w http.ResponseWriter, r *http.Request) {
	chats, err := h.store.Export(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.fail(w, "export", err)
		return
	}

	doc := exportDocument{ExportedAt: h.now().UTC(), Chats: make([]exportedChat, len(chats))}
	for i, c := range chats {
		doc.Chats[i] = exportedChat{chat: chatFromRecord(c.Record), Messages: c.Messages}
	}

	w.Header().Set("Content-Disposition", `attachment; filename="chats-export.json"`)
	writeJSON(w, http.StatusOK, doc)
}

func (h *chatsHandler) appendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !h.decode(w, r, &req) {
		return
	}

	msg, err := h.store.AppendMessage(r.Context(), chi.URLParam(r, "key"), store.Role(req.Role), req.Content)
	if err != nil {
		h.fail(w, "append message", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]store.Message{"message": msg})
}

// decode reads a JSON body into v and validates it. It writes a 400 and
// returns false on failure.
func (h *chatsHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid field %s: %s", verrs[0].Field(), verrs[0].Tag()))
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *chatsHandler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "chat not found")
	case errors.Is(err, store.ErrInvalidRole), errors.Is(err, store.ErrMissingToken):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		debug.Error(component, err, op)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *chatsHandler) shareURL(r *http.Request, id string) string {
	base := h.publicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return strings.TrimRight(base, "/") + "/share/" + id
}

func parseFlag(raw json.RawMessage) (bool, error) {
	switch strings.TrimSpace(string(raw)) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	case "":
		return false, errors.New("flag is required")
	}
	return false, fmt.Errorf("invalid flag %s", raw)
}
