package shortener

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sundayezeilo/shortlinks/internal/errx"
)

// StorageKey is the key the serialized collection lives under in key/value stores.
const StorageKey = "shortenedUrls"

// Store persists the whole link collection as a single blob.
//
// Load returns the last saved collection, or an empty one when nothing has been
// saved yet. Save replaces the blob with the given collection.
type Store interface {
	Load(ctx context.Context) ([]Link, error)
	Save(ctx context.Context, links []Link) error
}

type wireClick struct {
	Timestamp int64  `json:"timestamp"`
	Referrer  string `json:"referrer"`
	UserAgent string `json:"userAgent"`
}

type wireLink struct {
	ID          string      `json:"id"`
	OriginalURL string      `json:"originalUrl"`
	ShortCode   string      `json:"shortCode"`
	CreatedAt   int64       `json:"createdAt"`
	ExpiryTime  int64       `json:"expiryTime"`
	Clicks      []wireClick `json:"clicks"`
}

// EncodeLinks serializes links to the JSON array layout shared by every store.
// Timestamps are written as epoch milliseconds.
func EncodeLinks(links []Link) ([]byte, error) {
	const op = "shortener.EncodeLinks"

	out := make([]wireLink, 0, len(links))
	for _, l := range links {
		clicks := make([]wireClick, 0, len(l.Clicks))
		for _, c := range l.Clicks {
			clicks = append(clicks, wireClick{
				Timestamp: c.Timestamp.UnixMilli(),
				Referrer:  c.Referrer,
				UserAgent: c.UserAgent,
			})
		}
		out = append(out, wireLink{
			ID:          l.ID,
			OriginalURL: l.OriginalURL,
			ShortCode:   l.ShortCode,
			CreatedAt:   l.CreatedAt.UnixMilli(),
			ExpiryTime:  l.ExpiryTime.UnixMilli(),
			Clicks:      clicks,
		})
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, errx.E(op, errx.Internal, err)
	}
	return data, nil
}

// DecodeLinks parses a blob written by EncodeLinks. An empty or null blob
// decodes to an empty collection.
func DecodeLinks(data []byte) ([]Link, error) {
	const op = "shortener.DecodeLinks"

	var in []wireLink
	if len(data) > 0 {
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, errx.E(op, errx.Corrupt, fmt.Errorf("decode links: %w", err))
		}
	}

	links := make([]Link, 0, len(in))
	for i, w := range in {
		if w.ShortCode == "" {
			return nil, errx.E(op, errx.Corrupt, fmt.Errorf("link %d has no short code", i))
		}
		clicks := make([]Click, 0, len(w.Clicks))
		for _, c := range w.Clicks {
			clicks = append(clicks, Click{
				Timestamp: time.UnixMilli(c.Timestamp),
				Referrer:  c.Referrer,
				UserAgent: c.UserAgent,
			})
		}
		links = append(links, Link{
			ID:          w.ID,
			OriginalURL: w.OriginalURL,
			ShortCode:   w.ShortCode,
			CreatedAt:   time.UnixMilli(w.CreatedAt),
			ExpiryTime:  time.UnixMilli(w.ExpiryTime),
			Clicks:      clicks,
		})
	}
	return links, nil
}
