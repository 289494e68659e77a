// Package storetest holds the behaviour every shortener.Store backend must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sundayezeilo/shortlinks/internal/shortener"
)

// SampleLinks returns a small newest-first collection with clicks.
func SampleLinks() []shortener.Link {
	base := time.UnixMilli(1_700_000_000_000)
	return []shortener.Link{
		{
			ID:          "6a2f41a3-c54c-4c9a-9f1e-2b5f9b0f2c11",
			OriginalURL: "https://example.com/newest?utm_source=test&x=1",
			ShortCode:   "promo",
			CreatedAt:   base.Add(2 * time.Minute),
			ExpiryTime:  base.Add(32 * time.Minute),
			Clicks:      []shortener.Click{},
		},
		{
			ID:          "0b8c0a2e-1d0f-4f44-8a53-7d3a9b1e0c22",
			OriginalURL: "https://example.org/older",
			ShortCode:   "aB3xY9",
			CreatedAt:   base,
			ExpiryTime:  base.Add(time.Minute),
			Clicks: []shortener.Click{
				{Timestamp: base.Add(10 * time.Second), Referrer: "direct", UserAgent: "curl/8.5.0"},
				{Timestamp: base.Add(20 * time.Second), Referrer: "https://news.ycombinator.com/", UserAgent: "Mozilla/5.0"},
				{Timestamp: base.Add(30 * time.Second), Referrer: "direct", UserAgent: ""},
			},
		},
	}
}

// Run exercises newStore against the Store contract. Each subtest gets a
// fresh, empty store.
func Run(t *testing.T, newStore func(t *testing.T) shortener.Store) {
	t.Helper()

	t.Run("load from empty store returns empty collection", func(t *testing.T) {
		s := newStore(t)

		links, err := s.Load(context.Background())
		require.NoError(t, err)
		assert.Empty(t, links)
	})

	t.Run("save then load round-trips", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		want := SampleLinks()

		require.NoError(t, s.Save(ctx, want))

		got, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("save overwrites previous collection", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Save(ctx, SampleLinks()))
		require.NoError(t, s.Save(ctx, SampleLinks()[1:]))

		got, err := s.Load(ctx)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "aB3xY9", got[0].ShortCode)
	})

	t.Run("save empty collection", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Save(ctx, SampleLinks()))
		require.NoError(t, s.Save(ctx, []shortener.Link{}))

		got, err := s.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("load of save of load is stable", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Save(ctx, SampleLinks()))
		first, err := s.Load(ctx)
		require.NoError(t, err)

		require.NoError(t, s.Save(ctx, first))
		second, err := s.Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})
}
