// Package codegen generates short codes.
// Generators should be safe for concurrent use.
package codegen

import (
	"errors"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Alphabet is the 62-character set short codes are drawn from.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	DefaultLength = 6
)

// Generator generates short codes.
// Implementations should be safe for concurrent use.
type Generator interface {
	Generate(length int) (string, error)
}

// base62Generator draws every character independently and uniformly from Alphabet.
type base62Generator struct{}

// NewBase62 returns a new base62 code generator.
func NewBase62() Generator {
	return &base62Generator{}
}

// Generate generates a random base62 string of the specified length.
func (g *base62Generator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}
	return gonanoid.Generate(Alphabet, length)
}
