package httpx

import (
	"net/http"

	"github.com/sundayezeilo/shortlinks/internal/errx"
)

// ErrorKindToStatus maps errx.Kind to HTTP status codes.
func ErrorKindToStatus(kind errx.Kind) int {
	switch kind {
	case errx.NotFound:
		return http.StatusNotFound
	case errx.Conflict:
		return http.StatusConflict
	case errx.Invalid:
		return http.StatusBadRequest
	case errx.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorKindToCode maps errx.Kind to the error field of JSON error responses.
func ErrorKindToCode(kind errx.Kind) string {
	switch kind {
	case errx.NotFound:
		return "not_found"
	case errx.Conflict:
		return "conflict"
	case errx.Invalid:
		return "invalid_input"
	case errx.Unavailable:
		return "unavailable"
	case errx.Corrupt:
		return "corrupt_data"
	default:
		return "internal_error"
	}
}

// WriteKindError writes err as a JSON error whose status and code follow its
// kind. Client errors (4xx) carry errx.Message(err); for server errors it is
// replaced by fallback so storage details stay out of responses.
func WriteKindError(w http.ResponseWriter, err error, fallback string) {
	kind := errx.KindOf(err)
	status := ErrorKindToStatus(kind)

	message := errx.Message(err)
	if status >= http.StatusInternalServerError {
		message = fallback
	}
	WriteError(w, status, ErrorKindToCode(kind), message, nil)
}
