package shortener

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/sundayezeilo/shortlinks/internal/errx"
)

func TestEncodeLinks_Layout(t *testing.T) {
	base := time.UnixMilli(1_700_000_000_123)
	data, err := EncodeLinks([]Link{{
		ID:          "id-1",
		OriginalURL: "https://example.com",
		ShortCode:   "aB3xY9",
		CreatedAt:   base,
		ExpiryTime:  base.Add(30 * time.Minute),
		Clicks: []Click{
			{Timestamp: base.Add(time.Second), Referrer: "direct", UserAgent: "Mozilla/5.0"},
		},
	}})
	if err != nil {
		t.Fatalf("EncodeLinks() failed: %v", err)
	}

	var got []map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	want := []map[string]any{{
		"id":          "id-1",
		"originalUrl": "https://example.com",
		"shortCode":   "aB3xY9",
		"createdAt":   float64(1_700_000_000_123),
		"expiryTime":  float64(1_700_001_800_123),
		"clicks": []any{map[string]any{
			"timestamp": float64(1_700_000_001_123),
			"referrer":  "direct",
			"userAgent": "Mozilla/5.0",
		}},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("encoded = %v\nwant      %v", got, want)
	}
}

func TestEncodeLinks_EmptyClicksIsArray(t *testing.T) {
	data, err := EncodeLinks([]Link{{ID: "1", ShortCode: "x"}})
	if err != nil {
		t.Fatal(err)
	}
	var got []map[string]json.RawMessage
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if string(got[0]["clicks"]) != "[]" {
		t.Errorf("clicks = %s, want []", got[0]["clicks"])
	}

	data, err = EncodeLinks(nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Errorf("EncodeLinks(nil) = %s, want []", data)
	}
}

func TestDecodeLinks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLen  int
		wantKind errx.Kind
	}{
		{"empty blob", "", 0, errx.Unknown},
		{"null", "null", 0, errx.Unknown},
		{"empty array", "[]", 0, errx.Unknown},
		{"one link", `[{"id":"1","originalUrl":"https://a.example","shortCode":"abc","createdAt":1,"expiryTime":2,"clicks":[]}]`, 1, errx.Unknown},
		{"missing clicks", `[{"id":"1","shortCode":"abc","createdAt":1,"expiryTime":2}]`, 1, errx.Unknown},
		{"not json", "{broken", 0, errx.Corrupt},
		{"object instead of array", `{"id":"1"}`, 0, errx.Corrupt},
		{"wrong field type", `[{"id":"1","shortCode":"abc","createdAt":"yesterday"}]`, 0, errx.Corrupt},
		{"missing short code", `[{"id":"1","createdAt":1,"expiryTime":2}]`, 0, errx.Corrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links, err := DecodeLinks([]byte(tt.input))
			if tt.wantKind != errx.Unknown {
				if err == nil {
					t.Fatal("DecodeLinks() should fail")
				}
				if errx.KindOf(err) != tt.wantKind {
					t.Errorf("error kind = %v, want %v", errx.KindOf(err), tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeLinks() failed: %v", err)
			}
			if links == nil {
				t.Fatal("DecodeLinks() returned a nil collection")
			}
			if len(links) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(links), tt.wantLen)
			}
			for _, l := range links {
				if l.Clicks == nil {
					t.Error("decoded link has nil Clicks")
				}
			}
		})
	}
}

func TestCodec_PreservesOrderAndMilliseconds(t *testing.T) {
	base := time.UnixMilli(1_700_000_000_000)
	in := []Link{
		{ID: "2", ShortCode: "second", OriginalURL: "https://b.example", CreatedAt: base.Add(time.Minute), ExpiryTime: base.Add(time.Hour), Clicks: []Click{}},
		{ID: "1", ShortCode: "first", OriginalURL: "https://a.example", CreatedAt: base, ExpiryTime: base.Add(time.Hour), Clicks: []Click{
			{Timestamp: base.Add(1500 * time.Millisecond), Referrer: "direct"},
			{Timestamp: base.Add(2500 * time.Millisecond), Referrer: "https://ref.example", UserAgent: "ua"},
		}},
	}

	data, err := EncodeLinks(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := DecodeLinks(data)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("decoded collection differs:\n got %+v\nwant %+v", out, in)
	}
}

func TestCodec_TruncatesSubMillisecond(t *testing.T) {
	ts := time.UnixMilli(1_700_000_000_000).Add(999 * time.Microsecond)
	data, err := EncodeLinks([]Link{{ID: "1", ShortCode: "x", CreatedAt: ts}})
	if err != nil {
		t.Fatal(err)
	}
	out, err := DecodeLinks(data)
	if err != nil {
		t.Fatal(err)
	}
	if !out[0].CreatedAt.Equal(time.UnixMilli(1_700_000_000_000)) {
		t.Errorf("CreatedAt = %v, want millisecond truncation", out[0].CreatedAt)
	}
}

func TestDecodeLinks_ErrorUnwraps(t *testing.T) {
	_, err := DecodeLinks([]byte("{broken"))
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Errorf("error %v does not wrap the JSON syntax error", err)
	}
}

func TestLink_ExpiryBoundary(t *testing.T) {
	expiry := time.UnixMilli(1_700_000_000_000)
	l := Link{ExpiryTime: expiry}

	tests := []struct {
		name        string
		now         time.Time
		wantExpired bool
		wantActive  bool
	}{
		{"before", expiry.Add(-time.Millisecond), false, true},
		{"at expiry", expiry, false, false},
		{"after", expiry.Add(time.Millisecond), true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := l.Expired(tt.now); got != tt.wantExpired {
				t.Errorf("Expired() = %v, want %v", got, tt.wantExpired)
			}
			if got := l.Active(tt.now); got != tt.wantActive {
				t.Errorf("Active() = %v, want %v", got, tt.wantActive)
			}
		})
	}
}
