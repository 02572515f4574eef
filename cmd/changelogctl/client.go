package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/matoous/changelog/internal/model"
)

// Client calls the changelog REST API.
type Client struct {
	http   *resty.Client
	prefix string
}

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// NewClient creates a client for the service at baseURL; prefix is the
// versioned path domain routes live under.
func NewClient(baseURL, prefix string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
	return &Client{http: c, prefix: strings.TrimRight(prefix, "/")}
}

type addEntryRequest struct {
	Text        string   `json:"text"`
	Tags        []string `json:"tags"`
	Description *string  `json:"description,omitempty"`
}

// AddEntry posts a new entry and returns it as persisted.
func (c *Client) AddEntry(ctx context.Context, text string, tags []string, description *string) (*model.Entry, error) {
	if tags == nil {
		tags = []string{}
	}
	var out model.Entry
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(&addEntryRequest{Text: text, Tags: tags, Description: description}).
		SetResult(&out).
		Post(c.prefix + "/changelog")
	if err != nil {
		return nil, fmt.Errorf("add entry request: %w", err)
	}
	if resp.StatusCode() != http.StatusCreated {
		return nil, &APIError{Status: resp.StatusCode(), Body: strings.TrimSpace(resp.String())}
	}
	return &out, nil
}

// ListEntries fetches the changelog newest first. A 404 is an empty changelog.
func (c *Client) ListEntries(ctx context.Context, limit int, before *time.Time) ([]model.Entry, error) {
	var out []model.Entry
	req := c.http.R().SetContext(ctx).SetResult(&out)
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	if before != nil {
		req.SetQueryParam("before", before.UTC().Format(time.RFC3339Nano))
	}
	resp, err := req.Get(c.prefix + "/changelog")
	if err != nil {
		return nil, fmt.Errorf("list entries request: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		return out, nil
	case http.StatusNotFound:
		return []model.Entry{}, nil
	default:
		return nil, &APIError{Status: resp.StatusCode(), Body: strings.TrimSpace(resp.String())}
	}
}

// Health returns the liveness body of GET /health.
func (c *Client) Health(ctx context.Context) (string, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	if err != nil {
		return "", fmt.Errorf("health request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", &APIError{Status: resp.StatusCode(), Body: strings.TrimSpace(resp.String())}
	}
	return resp.String(), nil
}
