package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/matoous/changelog/internal/api/accesslog"
	"github.com/matoous/changelog/internal/api/recovery"
	"github.com/matoous/changelog/internal/services"
)

// RouterConfig carries everything the router needs.
type RouterConfig struct {
	Service         *services.ChangelogService
	Prefix          string
	EmptyAsNotFound bool
	Ready           func() bool
	Log             zerolog.Logger
}

// NewRouter wires health at the root and the changelog routes under the
// versioned prefix.
func NewRouter(cfg RouterConfig) *mux.Router {
	root := mux.NewRouter()
	root.Use(accesslog.Middleware(cfg.Log))
	root.Use(recovery.Middleware)

	health := NewHealthHandler(cfg.Ready)
	root.HandleFunc("/health", health.CheckHealth).Methods(http.MethodGet)
	root.HandleFunc("/ready", health.CheckReady).Methods(http.MethodGet)

	domain := root
	if prefix := strings.TrimRight(cfg.Prefix, "/"); prefix != "" {
		domain = root.PathPrefix(prefix).Subrouter()
	}
	changelog := NewChangelogHandler(cfg.Service, cfg.EmptyAsNotFound)
	domain.HandleFunc("/changelog", changelog.GetChangelog).Methods(http.MethodGet)
	domain.HandleFunc("/changelog", changelog.PostChangelog).Methods(http.MethodPost)

	return root
}
