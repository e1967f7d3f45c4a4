package ebs

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRequest struct {
	Path string
	Body map[string]any
}

type fakeHandler func(body map[string]any) (int, string)

// fakeServer stands in for the vendor API.
type fakeServer struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]fakeHandler
	requests []fakeRequest
}

func newFakeServer(tb testing.TB) *fakeServer {
	tb.Helper()
	fake := &fakeServer{handlers: map[string]fakeHandler{}}
	fake.Server = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		fake.mu.Lock()
		fake.requests = append(fake.requests, fakeRequest{Path: r.URL.Path, Body: body})
		handler, ok := fake.handlers[r.URL.Path]
		fake.mu.Unlock()

		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		code, resp := handler(body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(resp))
	}))
	tb.Cleanup(fake.Close)
	return fake
}

// addr is the server address the way users type it.
func (f *fakeServer) addr() string {
	return strings.TrimPrefix(f.URL, "https://") + "/ava"
}

func (f *fakeServer) options() []Option {
	return []Option{WithHTTPClient(f.Client())}
}

func (f *fakeServer) handle(path string, handler fakeHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = handler
}

func (f *fakeServer) reply(path string, code int, resp string) {
	f.handle(path, func(map[string]any) (int, string) {
		return code, resp
	})
}

func (f *fakeServer) requestsTo(path string) []fakeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []fakeRequest
	for _, r := range f.requests {
		if r.Path == path {
			result = append(result, r)
		}
	}
	return result
}

func (f *fakeServer) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// loggedIn returns a client already logged in with token "tkn".
func (f *fakeServer) loggedIn(tb testing.TB) *Client {
	tb.Helper()
	f.reply(pathLogin, http.StatusOK, `{"status_code":0,"user":{"token":"tkn"}}`)
	cli := New(f.addr(), f.options()...)
	require.NoError(tb, cli.Login("me@example.com", "1234"))
	return cli
}
