package services

import (
	"context"
	"fmt"

	"github.com/matoous/changelog/internal/model"
	"github.com/matoous/changelog/internal/store"
)

// ChangelogService orchestrates changelog use cases.
type ChangelogService struct {
	store store.Store
}

func NewChangelogService(s store.Store) *ChangelogService {
	return &ChangelogService{store: s}
}

// AddEntry appends a new entry. Server-assigned fields on the candidate are
// discarded before it reaches the repository.
func (s *ChangelogService) AddEntry(ctx context.Context, candidate model.Entry) (*model.Entry, error) {
	e := model.Entry{
		Tags:        candidate.Tags,
		Text:        candidate.Text,
		Description: candidate.Description,
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	return s.store.Entries().Add(ctx, &e)
}

// GetChangelog returns entries newest first. An empty changelog is an empty
// slice, not an error; callers decide how to present it.
func (s *ChangelogService) GetChangelog(ctx context.Context, req model.ListEntriesRequest) ([]*model.Entry, error) {
	out, err := s.store.Entries().List(ctx, req)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*model.Entry{}
	}
	return out, nil
}

// GetNonEmptyChangelog is GetChangelog that reports an empty result as
// model.ErrNotFound.
func (s *ChangelogService) GetNonEmptyChangelog(ctx context.Context, req model.ListEntriesRequest) ([]*model.Entry, error) {
	out, err := s.GetChangelog(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("changelog: %w", model.ErrNotFound)
	}
	return out, nil
}
