package middleware

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/roadmaphq/triage/internal/api/response"
)

// MaxBody limits request body size to maxBytes and answers 413 when a handler
// reads past the limit. A maxBytes of zero or less disables the limit.
func MaxBody(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body := &limitedBody{ReadCloser: http.MaxBytesReader(w, r.Body, maxBytes)}
			r.Body = body

			if !expectsBody(r.Method) {
				next.ServeHTTP(w, r)

				return
			}

			// Buffer the response for body-carrying methods so the handler's
			// partial output can be discarded and replaced with a clean 413.
			buf := &bufferedWriter{ResponseWriter: w}
			next.ServeHTTP(buf, r)

			if body.exceeded {
				response.RespondError(buf.ResponseWriter, http.StatusRequestEntityTooLarge,
					"Request Entity Too Large", "request body exceeds maximum allowed size")

				return
			}

			buf.release()
		})
	}
}

// expectsBody reports whether the method normally carries a request body.
// DELETE is included because unlink requests send one.
func expectsBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// limitedBody records whether a read tripped the MaxBytesReader limit.
type limitedBody struct {
	io.ReadCloser

	exceeded bool
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err == nil || errors.Is(err, io.EOF) {
		// io.EOF must pass through unwrapped; readers treat it as a sentinel.
		return n, err
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		b.exceeded = true
	}

	return n, fmt.Errorf("read body: %w", err)
}

// bufferedWriter holds status and body until release so the middleware can
// swap in an error response after the handler returns.
type bufferedWriter struct {
	http.ResponseWriter

	status int
	buf    bytes.Buffer
}

func (b *bufferedWriter) WriteHeader(code int) {
	b.status = code
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	n, err := b.buf.Write(p)
	if err != nil {
		return n, fmt.Errorf("buffer write: %w", err)
	}

	return n, nil
}

func (b *bufferedWriter) release() {
	if b.status != 0 {
		b.ResponseWriter.WriteHeader(b.status)
	}

	_, _ = b.buf.WriteTo(b.ResponseWriter)
}
