package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matoous/changelog/internal/model"
	"github.com/matoous/changelog/internal/store"
)

// MakeStore returns a clean, empty store built with opts.
type MakeStore func(t *testing.T, opts store.Options) store.Store

// fixedIDs hands out the same id on every call.
type fixedIDs string

func (f fixedIDs) NewID() (string, error) { return string(f), nil }

// Run exercises the repository contract against a store.Store implementation.
func Run(t *testing.T, makeStore MakeStore) {
	t.Helper()

	t.Run("EmptyList", func(t *testing.T) {
		s := makeStore(t, store.Options{})
		got, err := s.Entries().List(context.Background(), model.ListEntriesRequest{})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("AddAssignsIDAndTimestamps", func(t *testing.T) {
		s := makeStore(t, store.Options{})
		ctx := context.Background()
		desc := "## Details\nmore"
		in := &model.Entry{
			ID:          "client-supplied",
			Tags:        []string{"zeta", "alpha", "mid"},
			Text:        "Shipped the thing",
			Description: &desc,
			CreatedAt:   time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		}
		out, err := s.Entries().Add(ctx, in)
		require.NoError(t, err)
		assert.NotEmpty(t, out.ID)
		assert.NotEqual(t, "client-supplied", out.ID)
		assert.False(t, out.CreatedAt.IsZero())
		assert.False(t, out.UpdatedAt.IsZero())
		assert.True(t, out.CreatedAt.After(in.CreatedAt), "caller timestamp must be ignored")
		assert.Equal(t, []string{"zeta", "alpha", "mid"}, out.Tags)
		require.NotNil(t, out.Description)
		assert.Equal(t, desc, *out.Description)

		lst, err := s.Entries().List(ctx, model.ListEntriesRequest{})
		require.NoError(t, err)
		require.Len(t, lst, 1)
		assertSameEntry(t, out, lst[0])
	})

	t.Run("NilTagsStoredAsEmpty", func(t *testing.T) {
		s := makeStore(t, store.Options{})
		ctx := context.Background()
		out, err := s.Entries().Add(ctx, &model.Entry{Text: "no tags"})
		require.NoError(t, err)
		assert.NotNil(t, out.Tags)
		assert.Empty(t, out.Tags)
		assert.Nil(t, out.Description)

		lst, err := s.Entries().List(ctx, model.ListEntriesRequest{})
		require.NoError(t, err)
		require.Len(t, lst, 1)
		assert.NotNil(t, lst[0].Tags)
		assert.Empty(t, lst[0].Tags)
		assert.Nil(t, lst[0].Description)
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		s := makeStore(t, store.Options{})
		ctx := context.Background()
		var added []*model.Entry
		for _, text := range []string{"one", "two", "three"} {
			e, err := s.Entries().Add(ctx, &model.Entry{Text: text, Tags: []string{}})
			require.NoError(t, err)
			added = append(added, e)
			time.Sleep(5 * time.Millisecond) // distinct creation times
		}

		lst, err := s.Entries().List(ctx, model.ListEntriesRequest{})
		require.NoError(t, err)
		require.Len(t, lst, 3)
		assert.Equal(t, []string{"three", "two", "one"}, texts(lst))
		assertNewestFirst(t, lst)
		assert.Equal(t, added[2].ID, lst[0].ID)
	})

	t.Run("ListPaging", func(t *testing.T) {
		s := makeStore(t, store.Options{})
		ctx := context.Background()
		for _, text := range []string{"a", "b", "c", "d"} {
			_, err := s.Entries().Add(ctx, &model.Entry{Text: text, Tags: []string{}})
			require.NoError(t, err)
			time.Sleep(5 * time.Millisecond)
		}

		limited, err := s.Entries().List(ctx, model.ListEntriesRequest{Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"d", "c"}, texts(limited))

		before := limited[1].CreatedAt
		older, err := s.Entries().List(ctx, model.ListEntriesRequest{Before: &before})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, texts(older))
	})

	t.Run("DuplicateIDIsConflict", func(t *testing.T) {
		s := makeStore(t, store.Options{IDs: fixedIDs("dup-" + uuid.NewString())})
		ctx := context.Background()
		_, err := s.Entries().Add(ctx, &model.Entry{Text: "first", Tags: []string{}})
		require.NoError(t, err)

		_, err = s.Entries().Add(ctx, &model.Entry{Text: "second", Tags: []string{}})
		require.Error(t, err)
		kind, ok := store.KindOf(err)
		require.True(t, ok, "expected *store.Error, got %T", err)
		assert.Equal(t, store.KindQuery, kind)
		assert.True(t, errors.Is(err, model.ErrConflict))

		lst, err := s.Entries().List(ctx, model.ListEntriesRequest{})
		require.NoError(t, err)
		assert.Len(t, lst, 1, "failed insert must not be visible")
	})

	t.Run("ConcurrentAdds", func(t *testing.T) {
		s := makeStore(t, store.Options{})
		ctx := context.Background()
		const n = 50

		var wg sync.WaitGroup
		results := make([]*model.Entry, n)
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = s.Entries().Add(ctx, &model.Entry{Text: "concurrent", Tags: []string{"load"}})
			}(i)
		}
		wg.Wait()

		ids := make(map[string]int, n)
		for i := 0; i < n; i++ {
			require.NoError(t, errs[i])
			ids[results[i].ID]++
		}
		assert.Len(t, ids, n, "ids must be distinct")

		lst, err := s.Entries().List(ctx, model.ListEntriesRequest{})
		require.NoError(t, err)
		require.Len(t, lst, n)
		for _, e := range lst {
			ids[e.ID]--
		}
		for id, c := range ids {
			assert.Zero(t, c, "entry %s listed wrong number of times", id)
		}
		assertNewestFirst(t, lst)
	})
}

func texts(es []*model.Entry) []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.Text)
	}
	return out
}

func assertNewestFirst(t *testing.T, es []*model.Entry) {
	t.Helper()
	for i := 1; i < len(es); i++ {
		assert.False(t, es[i].CreatedAt.After(es[i-1].CreatedAt),
			"entry %d (%s) is newer than entry %d (%s)", i, es[i].CreatedAt, i-1, es[i-1].CreatedAt)
	}
}

func assertSameEntry(t *testing.T, want, got *model.Entry) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Tags, got.Tags)
	assert.Equal(t, want.Text, got.Text)
	assert.Equal(t, want.Description, got.Description)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %s != %s", want.CreatedAt, got.CreatedAt)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updated_at %s != %s", want.UpdatedAt, got.UpdatedAt)
}
