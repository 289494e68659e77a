// Package idgen issues link identifiers. IDs are opaque strings on the wire so a
// collection written by another tool with its own id scheme still loads.
package idgen

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator produces unique identifiers. Implementations are safe for
// concurrent use.
type Generator interface {
	Generate() (string, error)
}

// Func adapts a plain function to Generator.
type Func func() (string, error)

func (f Func) Generate() (string, error) { return f() }

// Version selects the UUID layout of generated ids.
type Version uint8

const (
	// V4 ids are fully random.
	V4 Version = 4
	// V7 ids start with a millisecond timestamp, so they sort by creation time.
	V7 Version = 7
)

// Option tunes a generator.
type Option func(*uuidGen)

// WithRetries sets how many extra attempts follow a failed read of the
// random source. Negative values are ignored; the default is 1.
func WithRetries(n int) Option {
	return func(g *uuidGen) {
		if n >= 0 {
			g.retries = n
		}
	}
}

type uuidGen struct {
	version Version
	newUUID func() (uuid.UUID, error)
	retries int
}

// New returns a Generator for the given version. Versions other than V4
// produce V7 ids.
func New(v Version, opts ...Option) Generator {
	g := &uuidGen{version: V7, newUUID: uuid.NewV7, retries: 1}
	if v == V4 {
		g.version, g.newUUID = V4, uuid.NewRandom
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewV4 returns a Generator of random UUID v4 strings.
func NewV4(opts ...Option) Generator { return New(V4, opts...) }

// NewV7 returns a Generator of time-ordered UUID v7 strings.
func NewV7(opts ...Option) Generator { return New(V7, opts...) }

func (g *uuidGen) Generate() (string, error) {
	var err error
	for range g.retries + 1 {
		var id uuid.UUID
		if id, err = g.newUUID(); err == nil {
			return id.String(), nil
		}
	}
	return "", fmt.Errorf("uuid v%d: %d attempts failed: %w", g.version, g.retries+1, err)
}
