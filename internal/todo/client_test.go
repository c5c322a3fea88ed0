package todo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todaytasks/api/internal/store"
)

// newTodosServer serves the todos resource from a Store, the same contract
// the API server implements.
func newTodosServer(t *testing.T, s *Store) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/api/todos" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"code": "NOT_FOUND", "error": "Not found"})
			return
		}
		switch r.Method {
		case http.MethodGet:
			tasks, err := s.Read(r.Context())
			if !assert.NoError(t, err) {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_ = json.NewEncoder(w).Encode(Document{Todos: tasks})
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			tasks, err := DecodeTasks(body)
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]any{"code": "INVALID_BODY", "error": err.Error()})
				return
			}
			if !assert.NoError(t, s.Replace(r.Context(), tasks)) {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientDrivesController(t *testing.T) {
	s := NewStore(store.NewMemoryStore())
	srv := newTodosServer(t, s)
	client := NewClient(srv.URL+"/", nil)
	ctx := context.Background()

	c := NewController(client)
	require.NoError(t, c.Load(ctx))
	task, err := c.Add(ctx, "Buy milk")
	require.NoError(t, err)
	require.NoError(t, c.Toggle(ctx, task.ID))

	persisted, err := s.Read(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, task.ID, persisted[0].ID)
	assert.True(t, persisted[0].Completed)

	fromClient, err := client.Read(ctx)
	require.NoError(t, err)
	require.Len(t, fromClient, 1)
	assert.Equal(t, "Buy milk", fromClient[0].Text)
}

func TestClientReportsAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"SERVER_ERROR","error":"Error saving todos"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, nil).Replace(context.Background(), []Task{{ID: "1", Text: "x"}})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "SERVER_ERROR", apiErr.Code)
	assert.Equal(t, "Error saving todos", apiErr.Message)
}

func TestClientRequiresSuccessFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL, nil).Replace(context.Background(), nil)
	require.Error(t, err)
}
