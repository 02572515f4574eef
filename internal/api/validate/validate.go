package validate

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-openapi/strfmt"

	"github.com/matoous/changelog/internal/model"
)

const (
	MaxTextLen        = 10000
	MaxDescriptionLen = 10000
	MaxTags           = 50
	MaxTagLen         = 64
	MaxListLimit      = 1000
)

// NonBlank rejects missing, empty and whitespace-only values.
func NonBlank(field string, v *string) error {
	if v == nil || strings.TrimSpace(*v) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

func MaxLen(field string, v *string, limit int) error {
	if v == nil {
		return nil
	}
	if utf8.RuneCountInString(*v) > limit {
		return fmt.Errorf("%s exceeds %d characters", field, limit)
	}
	return nil
}

// Tags requires the array itself; it may be empty. Each tag must be non-blank.
func Tags(tags *[]string) error {
	if tags == nil {
		return fmt.Errorf("tags is required")
	}
	if len(*tags) > MaxTags {
		return fmt.Errorf("tags exceeds %d items", MaxTags)
	}
	for i, tag := range *tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("tags[%d] must not be empty", i)
		}
		if utf8.RuneCountInString(tag) > MaxTagLen {
			return fmt.Errorf("tags[%d] exceeds %d characters", i, MaxTagLen)
		}
	}
	return nil
}

// -------- Request specific helpers ----------

// CreateEntry validates the body of POST /changelog. Errors wrap model.ErrValidation.
func CreateEntry(text *string, tags *[]string, description *string) error {
	if err := NonBlank("text", text); err != nil {
		return invalid(err)
	}
	if err := MaxLen("text", text, MaxTextLen); err != nil {
		return invalid(err)
	}
	if err := Tags(tags); err != nil {
		return invalid(err)
	}
	if err := MaxLen("description", description, MaxDescriptionLen); err != nil {
		return invalid(err)
	}
	return nil
}

// ListEntries parses the optional limit and before query parameters of
// GET /changelog.
func ListEntries(q url.Values) (model.ListEntriesRequest, error) {
	var req model.ListEntriesRequest
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > MaxListLimit {
			return req, invalid(fmt.Errorf("limit must be an integer between 1 and %d", MaxListLimit))
		}
		req.Limit = n
	}
	if s := q.Get("before"); s != "" {
		dt, err := strfmt.ParseDateTime(s)
		if err != nil {
			return req, invalid(fmt.Errorf("before must be an RFC3339 timestamp"))
		}
		t := time.Time(dt).UTC()
		req.Before = &t
	}
	return req, nil
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", model.ErrValidation, err)
}
