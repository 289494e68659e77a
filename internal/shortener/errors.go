package shortener

import "errors"

var (
	ErrInvalidURL         = errors.New("url must be an absolute URL")
	ErrInvalidLifetime    = errors.New("lifetime out of range")
	ErrDuplicateCode      = errors.New("short code already exists")
	ErrCodeSpaceExhausted = errors.New("could not generate a unique short code")
)
