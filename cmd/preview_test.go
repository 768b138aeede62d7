package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bov-engine/internal/render"
)

func TestResolvePort(t *testing.T) {
	assert.Equal(t, 9090, resolvePort(9090, 8080))
	assert.Equal(t, 8080, resolvePort(0, 8080))
	assert.Equal(t, 0, resolvePort(0, 0))
}

func TestPreviewRouter_RerendersOnEveryRequest(t *testing.T) {
	dir := templateDir(t, `<p>{{.cover.address_street}}</p>`)
	path := writeDoc(t, `{"cover":{"address_street":"1 Main St"}}`)

	srv := httptest.NewServer(buildRouter(path, render.New(dir), "bov.html", []string{"*"}))
	defer srv.Close()

	get := func() string {
		resp, err := http.Get(srv.URL + "/")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(body)
	}

	assert.Equal(t, "<p>1 Main St</p>", get())

	require.NoError(t, os.WriteFile(path, []byte(`{"cover":{"address_street":"2 Side St"}}`), 0o644))
	assert.Equal(t, "<p>2 Side St</p>", get())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bov.html"), []byte(`<b>{{.cover.address_street}}</b>`), 0o644))
	assert.Equal(t, "<b>2 Side St</b>", get())
}

func TestPreviewRouter_RenderErrorIs500(t *testing.T) {
	dir := templateDir(t, `ok`)
	path := writeDoc(t, `{"cover":{}}`)

	srv := httptest.NewServer(buildRouter(path, render.New(dir), "missing.html", []string{"*"}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestPreviewRouter_BadDataFileIs500(t *testing.T) {
	dir := templateDir(t, `ok`)
	path := writeDoc(t, `not json`)

	srv := httptest.NewServer(buildRouter(path, render.New(dir), "bov.html", []string{"*"}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestPreviewRouter_CORS(t *testing.T) {
	dir := templateDir(t, `ok`)
	path := writeDoc(t, `{}`)

	srv := httptest.NewServer(buildRouter(path, render.New(dir), "bov.html", []string{"https://example.com"}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.com")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "https://example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestStartServer_GracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := buildRouter(writeDoc(t, `{}`), render.New(templateDir(t, `ok`)), "bov.html", []string{"*"})

	// Find a free port.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- startServer(ctx, handler, port)
	}()

	// Wait for server to be ready.
	var ready bool
	for i := 0; i < 50; i++ {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
		if err == nil {
			var body map[string]string
			_ = json.NewDecoder(resp.Body).Decode(&body)
			resp.Body.Close()
			assert.Equal(t, "ok", body["status"])
			ready = true
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.True(t, ready, "server did not become ready in time")

	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}
