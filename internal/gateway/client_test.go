package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guilhermegouw/chatkeeper/internal/db"
	"github.com/guilhermegouw/chatkeeper/internal/server"
	"github.com/guilhermegouw/chatkeeper/internal/store"
)

func setupStoreServer(t *testing.T) (*Client, *store.SQLiteStore) {
	t.Helper()

	database, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() }) //nolint:errcheck // test cleanup

	st := store.NewSQLiteStore(database.Conn())
	srv := httptest.NewServer(server.New(st, server.Options{PublicURL: "https://chat.example"}).Handler())
	t.Cleanup(srv.Close)

	return New(Options{Root: srv.URL, Timeout: 5 * time.Second}), st
}

func createSession(t *testing.T, st *store.SQLiteStore, token, title string, createdAt time.Time) string {
	t.Helper()
	rec, err := st.Create(context.Background(), store.CreateParams{OwnerToken: token, Title: title, CreatedAt: createdAt})
	require.NoError(t, err)
	return rec.ID
}

func TestClientAgainstStore(t *testing.T) {
	ctx := context.Background()
	client, st := setupStoreServer(t)
	now := time.Now()

	s1 := createSession(t, st, "tok1", "first", now)
	s2 := createSession(t, st, "tok1", "second", now.Add(-48*time.Hour))
	createSession(t, st, "tok2", "someone else", now)

	t.Run("lists active sessions of the owner", func(t *testing.T) {
		active, err := client.ListActive(ctx, "tok1")
		require.NoError(t, err)
		require.Len(t, active, 2)
		assert.Equal(t, s1, active[0].ID)
		assert.Equal(t, "first", active[0].Title)
		assert.WithinDuration(t, now, active[0].CreatedAt, time.Second)
	})

	t.Run("archive moves a session between lists", func(t *testing.T) {
		require.NoError(t, client.SetArchived(ctx, s2, true))
		require.NoError(t, client.SetArchived(ctx, s2, true))

		active, err := client.ListActive(ctx, "tok1")
		require.NoError(t, err)
		assert.Len(t, active, 1)

		archived, err := client.ListArchived(ctx, "tok1")
		require.NoError(t, err)
		require.Len(t, archived, 1)
		assert.Equal(t, s2, archived[0].ID)
		assert.True(t, archived[0].Archived)

		require.NoError(t, client.SetArchived(ctx, s2, false))
		archived, err = client.ListArchived(ctx, "tok1")
		require.NoError(t, err)
		assert.Empty(t, archived)
	})

	t.Run("rename and share", func(t *testing.T) {
		require.NoError(t, client.Rename(ctx, s1, "renamed"))

		url, err := client.SetShared(ctx, s1, true)
		require.NoError(t, err)
		assert.Equal(t, "https://chat.example/share/"+s1, url)

		shared, err := client.ListShared(ctx, "tok1")
		require.NoError(t, err)
		require.Len(t, shared, 1)
		assert.Equal(t, "renamed", shared[0].Title)

		url, err = client.SetShared(ctx, s1, false)
		require.NoError(t, err)
		assert.Empty(t, url)
	})

	t.Run("export returns the document", func(t *testing.T) {
		data, err := client.ExportAll(ctx, "tok1")
		require.NoError(t, err)

		var doc struct {
			Chats []json.RawMessage `json:"chats"`
		}
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.Len(t, doc.Chats, 2)
	})

	t.Run("unknown id is an unexpected status", func(t *testing.T) {
		err := client.DeleteOne(ctx, "missing")
		require.ErrorIs(t, err, ErrUnexpectedStatus)
		assert.Equal(t, http.StatusNotFound, StatusCode(err))
	})

	t.Run("delete all empties the active list", func(t *testing.T) {
		require.NoError(t, client.DeleteAll(ctx, "tok1"))

		active, err := client.ListActive(ctx, "tok1")
		require.NoError(t, err)
		assert.Empty(t, active)

		others, err := client.ListActive(ctx, "tok2")
		require.NoError(t, err)
		assert.Len(t, others, 1)
	})
}

func TestClientFailureClasses(t *testing.T) {
	ctx := context.Background()

	t.Run("non-200 is unexpected status regardless of body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		err := New(Options{Root: srv.URL}).DeleteOne(ctx, "s1")
		require.ErrorIs(t, err, ErrUnexpectedStatus)

		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusNoContent, se.StatusCode)
		assert.Equal(t, "delete", se.Op)
	})

	t.Run("malformed list body", func(t *testing.T) {
		for _, body := range []string{`not json`, `{"items":[]}`, `{"chats":[{"title":"no id"}]}`} {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))

			_, err := New(Options{Root: srv.URL}).ListActive(ctx, "tok1")
			assert.ErrorIs(t, err, ErrMalformedResponse, body)
			srv.Close()
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		root := srv.URL
		srv.Close()

		_, err := New(Options{Root: root, Timeout: time.Second}).ListActive(ctx, "tok1")
		require.ErrorIs(t, err, ErrTransport)
		assert.False(t, errors.Is(err, ErrUnexpectedStatus))
	})

	t.Run("cancelled context is a transport failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"chats":[]}`))
		}))
		defer srv.Close()

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := New(Options{Root: srv.URL}).ListActive(cctx, "tok1")
		require.ErrorIs(t, err, ErrTransport)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"chats":[]}`))
	}))
	defer srv.Close()

	client := New(Options{Root: srv.URL, RetryMax: 2, RetryWaitMin: time.Millisecond, RetryWaitMax: 5 * time.Millisecond})
	chats, err := client.ListActive(context.Background(), "tok1")
	require.NoError(t, err)
	assert.Empty(t, chats)
	assert.Equal(t, int32(2), calls.Load())

	t.Run("exhausted retries surface the last status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client := New(Options{Root: srv.URL, RetryMax: 1, RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond})
		err := client.SetArchived(context.Background(), "s1", true)
		require.ErrorIs(t, err, ErrUnexpectedStatus)
		assert.Equal(t, http.StatusBadGateway, StatusCode(err))
	})
}

func TestClientRequestShape(t *testing.T) {
	type seen struct {
		method, path string
		body         map[string]any
	}
	var got seen
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = seen{method: r.Method, path: r.URL.EscapedPath()}
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := New(Options{Root: srv.URL + "/api/"})
	ctx := context.Background()

	require.NoError(t, client.SetArchived(ctx, "s1", true))
	assert.Equal(t, seen{http.MethodPatch, "/api/chats/s1/archive", map[string]any{"archived": float64(1)}}, got)

	require.NoError(t, client.SetArchived(ctx, "s1", false))
	assert.Equal(t, float64(0), got.body["archived"])

	require.NoError(t, client.DeleteAll(ctx, "tok/1"))
	assert.Equal(t, http.MethodDelete, got.method)
	assert.Equal(t, "/api/chats/deleteAll/tok%2F1", got.path)

	require.NoError(t, client.Rename(ctx, "s1", "New title"))
	assert.Equal(t, seen{http.MethodPatch, "/api/chats/s1", map[string]any{"title": "New title"}}, got)
}

func TestClientRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"chats":[]}`))
	}))
	defer srv.Close()

	client := New(Options{Root: srv.URL, RateLimit: 1})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.ListActive(ctx, "tok1")
	require.NoError(t, err)

	// The single token is spent; the next call cannot be admitted before the
	// deadline.
	_, err = client.ListActive(ctx, "tok1")
	assert.ErrorIs(t, err, ErrTransport)
}
