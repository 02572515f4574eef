package changelogservice

import (
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matoous/changelog/internal/config"
)

func TestStartupHealthTimeout(t *testing.T) {
	assert.Equal(t, time.Minute, startupHealthTimeout(time.Second))
	assert.Equal(t, time.Minute, startupHealthTimeout(30*time.Second))
	assert.Equal(t, 3*time.Minute, startupHealthTimeout(90*time.Second))
}

func TestNewHTTPServer_RequestContextOutlivesSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := newHTTPServer(ctx, http.NotFoundHandler())

	base := srv.BaseContext(nil)
	cancel()
	assert.NoError(t, base.Err(), "request contexts must survive the shutdown signal")
}

func TestServe_InFlightRequestFinishesOnShutdown(t *testing.T) {
	cfg := config.NewForTesting()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "changelog.db")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, cfg, zerolog.Nop(), ln) }()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	// Slow the request body so the request is in flight when shutdown starts.
	pr, pw := io.Pipe()
	status := make(chan int, 1)
	go func() {
		resp, err := http.Post(base+"/v1/changelog", "application/json", pr)
		if err != nil {
			status <- 0
			return
		}
		resp.Body.Close()
		status <- resp.StatusCode
	}()
	_, err = pw.Write([]byte(`{"text":"in flight",`))
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	cancel()
	time.Sleep(100 * time.Millisecond)
	_, err = pw.Write([]byte(`"tags":[]}`))
	require.NoError(t, err)
	require.NoError(t, pw.Close())

	select {
	case code := <-status:
		assert.Equal(t, http.StatusCreated, code)
	case <-time.After(10 * time.Second):
		t.Fatal("in-flight request did not complete")
	}
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_SQLiteLifecycle(t *testing.T) {
	cfg := config.NewForTesting()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "changelog.db")

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, cfg, zerolog.Nop(), ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK && string(body) == "Alive and well."
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get(base + "/v1/changelog")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(base+"/v1/changelog", "application/json", strings.NewReader(`{"text":"Test","tags":["a","b"]}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Get(base + "/v1/changelog")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_StoreFailureClosesListener(t *testing.T) {
	cfg := config.NewForTesting()
	cfg.DBDriver = "mysql"

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	err = Serve(context.Background(), cfg, zerolog.Nop(), ln)
	require.Error(t, err)
	_, err = ln.Accept()
	assert.Error(t, err, "listener must be closed")
}
