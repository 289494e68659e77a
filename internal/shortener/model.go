package shortener

import (
	"time"
)

// DirectReferrer is recorded when a visit carries no referrer.
const DirectReferrer = "direct"

// Link is one shortening record. Clicks are append-only and kept in the order
// they were recorded.
type Link struct {
	ID          string
	OriginalURL string
	ShortCode   string
	CreatedAt   time.Time
	ExpiryTime  time.Time
	Clicks      []Click
}

// Click is a single resolution of a link.
type Click struct {
	Timestamp time.Time
	Referrer  string
	UserAgent string
}

// Expired reports whether the link can no longer be resolved at now.
// A link is still valid exactly at its expiry instant.
func (l Link) Expired(now time.Time) bool {
	return now.After(l.ExpiryTime)
}

// Active reports whether now is strictly before the expiry time.
func (l Link) Active(now time.Time) bool {
	return now.Before(l.ExpiryTime)
}

func (l Link) ClickCount() int {
	return len(l.Clicks)
}

// clone returns a copy that shares no click storage with l.
func (l Link) clone() Link {
	if l.Clicks != nil {
		l.Clicks = append([]Click(nil), l.Clicks...)
	}
	return l
}

// Analytics summarises the whole collection.
type Analytics struct {
	TotalLinks       int
	TotalClicks      int
	ActiveLinks      int
	AvgClicksPerLink int
}

// DailyClicks is the number of clicks recorded on one calendar date.
type DailyClicks struct {
	Date   string // YYYY-MM-DD
	Clicks int
}
