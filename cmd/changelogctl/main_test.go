package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matoous/changelog/internal/api"
	"github.com/matoous/changelog/internal/model"
	"github.com/matoous/changelog/internal/services"
	"github.com/matoous/changelog/internal/store"
	"github.com/matoous/changelog/internal/store/sqlite"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "changelog.db"))
	require.NoError(t, err)
	require.NoError(t, sqlite.EnsureSchema(context.Background(), db))
	st := sqlite.NewWithDB(db, store.Options{})
	t.Cleanup(func() { _ = st.Close() })

	srv := httptest.NewServer(api.NewRouter(api.RouterConfig{
		Service:         services.NewChangelogService(st),
		Prefix:          "/v1",
		EmptyAsNotFound: true,
		Log:             zerolog.Nop(),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_AddAndList(t *testing.T) {
	srv := newServer(t)

	out, err := run(t, "--api", srv.URL, "list")
	require.NoError(t, err)
	assert.Empty(t, out, "404 is an empty changelog")

	out, err = run(t, "--api", srv.URL, "--json", "add", "--text", "Shipped **v1**", "--tag", "release,api", "-d", "details")
	require.NoError(t, err)
	var created model.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, []string{"release", "api"}, created.Tags)
	require.NotNil(t, created.Description)
	assert.Equal(t, "details", *created.Description)

	out, err = run(t, "--api", srv.URL, "list", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, created.ID)
	assert.Contains(t, out, "release,api")
	assert.Contains(t, out, "Shipped **v1**")
}

func TestCLI_Health(t *testing.T) {
	srv := newServer(t)

	out, err := run(t, "--api", srv.URL, "health")
	require.NoError(t, err)
	assert.Equal(t, "Alive and well.\n", out)
}

func TestCLI_Errors(t *testing.T) {
	srv := newServer(t)

	_, err := run(t, "--api", srv.URL, "add", "--text", "  ")
	assert.ErrorContains(t, err, "--text required")

	_, err = run(t, "--api", srv.URL, "list", "--before", "last week")
	assert.ErrorContains(t, err, "RFC3339")

	_, err = run(t, "--api", srv.URL, "list", "--limit", "5000")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Body, "limit")
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "/v1/", 0)
	_, err := c.ListEntries(context.Background(), 0, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.True(t, strings.HasPrefix(apiErr.Error(), "http 500"))

	_, err = c.AddEntry(context.Background(), "x", nil, nil)
	require.ErrorAs(t, err, &apiErr)
}
