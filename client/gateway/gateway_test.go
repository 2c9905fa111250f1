package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoBody struct {
	Auth   string          `json:"auth"`
	Method string          `json:"method"`
	Body   json.RawMessage `json:"body"`
}

func newTestServer(t *testing.T, release <-chan struct{}) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/echo":
			var raw json.RawMessage
			_ = json.NewDecoder(r.Body).Decode(&raw)
			_ = json.NewEncoder(w).Encode(echoBody{Auth: r.Header.Get("Authorization"), Method: r.Method, Body: raw})
		case "/conflict":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error": "an object with this id already exists"}`))
		case "/invalid":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"title": "this field is required"}`))
		case "/slow":
			<-release
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGateway_Do(t *testing.T) {
	srv := newTestServer(t, nil)

	var mu sync.Mutex
	var handled []error
	gw := New(Config{BaseURL: srv.URL + "/", Timeout: time.Second, ErrorHandler: func(err error) {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, err)
	}})
	ctx := context.Background()

	t.Run("anonymous", func(t *testing.T) {
		var out echoBody
		require.NoError(t, gw.Get(ctx, "/echo", &out))
		assert.Equal(t, "", out.Auth)
		assert.Equal(t, http.MethodGet, out.Method)
	})

	t.Run("authenticated with body", func(t *testing.T) {
		gw.SetToken("tok")
		defer gw.SetToken("")

		var out echoBody
		require.NoError(t, gw.Put(ctx, "/echo", map[string]int{"xp": 10}, &out))
		assert.Equal(t, "Bearer tok", out.Auth)
		assert.JSONEq(t, `{"xp": 10}`, string(out.Body))
	})

	tests := []struct {
		name       string
		path       string
		wantCode   int
		wantMsg    string
		wantFields map[string]string
	}{
		{name: "error message", path: "/conflict", wantCode: http.StatusConflict, wantMsg: "an object with this id already exists"},
		{name: "field errors", path: "/invalid", wantCode: http.StatusBadRequest, wantMsg: "Bad Request", wantFields: map[string]string{"title": "this field is required"}},
		{name: "no body", path: "/missing", wantCode: http.StatusNotFound, wantMsg: "Not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gw.Post(ctx, tt.path, map[string]string{"id": "x"}, nil)
			herr, ok := errors.Cause(err).(*HTTPError)
			if !ok {
				t.Fatalf("Post() failed! err = %v; want *HTTPError", err)
			}
			assert.Equal(t, tt.wantCode, herr.StatusCode)
			assert.Equal(t, tt.wantCode, StatusCode(err))
			assert.Equal(t, tt.wantMsg, herr.Message)
			assert.Equal(t, tt.wantFields, herr.Fields)
		})
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, handled, len(tests))
}

func TestGateway_transportError(t *testing.T) {
	gw := New(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	err := gw.Get(context.Background(), "/users", nil)
	require.Error(t, err)
	assert.Equal(t, 0, StatusCode(err))
}

func TestGateway_tracking(t *testing.T) {
	release := make(chan struct{})
	srv := newTestServer(t, release)
	gw := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	ctx := context.Background()

	assert.False(t, gw.IsLoading())

	slow1 := gw.Start(ctx, http.MethodDelete, "/slow", nil, nil)
	slow2 := gw.Start(ctx, http.MethodDelete, "/slow", nil, nil)
	fast := gw.Start(ctx, http.MethodGet, "/echo", nil, nil)

	require.NoError(t, fast.Wait())
	assert.False(t, fast.Pending())
	assert.True(t, slow1.Pending())
	assert.Equal(t, 2, gw.InFlight())
	assert.True(t, gw.IsLoading())

	close(release)
	require.NoError(t, slow1.Wait())
	require.NoError(t, slow2.Wait())
	assert.Equal(t, 0, gw.InFlight())
	assert.False(t, gw.IsLoading())
}

func TestGateway_cancel(t *testing.T) {
	release := make(chan struct{})
	srv := newTestServer(t, release)
	t.Cleanup(func() { close(release) })
	gw := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := gw.Delete(ctx, "/slow", nil, nil)
	if err == nil {
		t.Fatal("Delete() failed! err = nil; want context error")
	}
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, StatusCode(err))
	assert.Equal(t, 0, gw.InFlight())
}
