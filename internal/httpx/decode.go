package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/sundayezeilo/shortlinks/internal/errx"
)

// MaxRequestBodySize caps JSON request bodies. Create requests carry a URL
// and two short fields.
const MaxRequestBodySize = 64 << 10

// DecodeJSON decodes a single JSON object from the request body into T.
// Unknown fields, trailing data, oversized bodies and non-JSON content types
// are rejected. Every failure is an errx.Invalid error.
func DecodeJSON[T any](r *http.Request) (T, error) {
	const op = "httpx.DecodeJSON"
	var zero T

	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return zero, errx.E(op, errx.Invalid, fmt.Errorf("unsupported content type %q", ct))
		}
	}

	r.Body = http.MaxBytesReader(nil, r.Body, MaxRequestBodySize)
	defer func() {
		_ = r.Body.Close()
	}()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var v T
	if err := decoder.Decode(&v); err != nil {
		return zero, errx.E(op, errx.Invalid, describeDecodeError(err))
	}

	if decoder.More() {
		return zero, errx.E(op, errx.Invalid, errors.New("request body contains multiple JSON values"))
	}

	return v, nil
}

func describeDecodeError(err error) error {
	var syntaxErr *json.SyntaxError
	var unmarshalErr *json.UnmarshalTypeError
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Errorf("malformed JSON at position %d", syntaxErr.Offset)
	case errors.As(err, &unmarshalErr):
		return fmt.Errorf("invalid value for field %q", unmarshalErr.Field)
	case errors.As(err, &maxBytesErr):
		return fmt.Errorf("request body too large (max %d bytes)", MaxRequestBodySize)
	case errors.Is(err, io.EOF):
		return errors.New("request body is empty")
	case errors.Is(err, io.ErrUnexpectedEOF):
		return errors.New("request body ends mid-value")
	default:
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
}
