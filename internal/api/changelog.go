package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/hlog"

	respond "github.com/matoous/changelog/internal/api/respond"
	"github.com/matoous/changelog/internal/api/validate"
	"github.com/matoous/changelog/internal/model"
	"github.com/matoous/changelog/internal/services"
	"github.com/matoous/changelog/internal/store"
)

// maxBodyBytes caps POST bodies.
const maxBodyBytes = 1 << 20

type ChangelogHandler struct {
	svc             *services.ChangelogService
	emptyAsNotFound bool
}

// NewChangelogHandler builds the changelog handlers. With emptyAsNotFound an
// empty changelog is answered with 404 instead of 200 and an empty array.
func NewChangelogHandler(svc *services.ChangelogService, emptyAsNotFound bool) *ChangelogHandler {
	return &ChangelogHandler{svc: svc, emptyAsNotFound: emptyAsNotFound}
}

type createEntryRequest struct {
	Text        *string   `json:"text"`
	Tags        *[]string `json:"tags"`
	Description *string   `json:"description,omitempty"`
}

// GetChangelog GET /changelog
func (h *ChangelogHandler) GetChangelog(w http.ResponseWriter, r *http.Request) {
	req, err := validate.ListEntries(r.URL.Query())
	if err != nil {
		hlog.FromRequest(r).Debug().Err(err).Msg("invalid changelog query")
		respond.WriteBadRequest(w, err.Error())
		return
	}

	get := h.svc.GetChangelog
	if h.emptyAsNotFound {
		get = h.svc.GetNonEmptyChangelog
	}
	entries, err := get(r.Context(), req)
	if errors.Is(err, model.ErrNotFound) {
		respond.WriteEmpty(w, http.StatusNotFound)
		return
	}
	if err != nil {
		logRepositoryError(r, err, "get changelog failed")
		respond.WriteEmpty(w, http.StatusInternalServerError)
		return
	}
	respond.WriteJSON(w, http.StatusOK, entries)
}

// PostChangelog POST /changelog
func (h *ChangelogHandler) PostChangelog(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := decodeBody(http.MaxBytesReader(w, r.Body, maxBodyBytes), &req); err != nil {
		hlog.FromRequest(r).Debug().Err(err).Msg("invalid changelog entry body")
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.CreateEntry(req.Text, req.Tags, req.Description); err != nil {
		hlog.FromRequest(r).Debug().Err(err).Msg("changelog entry rejected")
		respond.WriteBadRequest(w, err.Error())
		return
	}

	out, err := h.svc.AddEntry(r.Context(), model.Entry{
		Tags:        *req.Tags,
		Text:        *req.Text,
		Description: req.Description,
	})
	if err != nil {
		logRepositoryError(r, err, "add entry failed")
		respond.WriteEmpty(w, http.StatusInternalServerError)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

// decodeBody decodes exactly one JSON value from body into v; anything after
// it, including a second value, is an error.
func decodeBody(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// logRepositoryError records the failing operation and error kind; the client
// only ever sees a bare 500.
func logRepositoryError(r *http.Request, err error, msg string) {
	ev := hlog.FromRequest(r).Error().Stack().Err(err)
	var se *store.Error
	if errors.As(err, &se) {
		ev = ev.Str("op", se.Op).Str("kind", string(se.Kind))
	}
	ev.Msg(msg)
}
