package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"

	openai "github.com/sashabaranov/go-openai"
)

// Kind classifies an oracle failure for the retry layer.
type Kind string

const (
	// KindTransient marks overload, rate limiting or a dropped connection; worth retrying.
	KindTransient Kind = "transient"
	// KindPrecondition marks missing or unusable input, e.g. an empty document.
	KindPrecondition Kind = "precondition"
	// KindFatal marks a rejected request that will not succeed on retry.
	KindFatal Kind = "fatal"
	// KindParse marks a response that could not be interpreted.
	KindParse Kind = "parse"
)

// ErrEmptyResponse indicates the model returned no content.
var ErrEmptyResponse = errors.New("model returned no content")

// Error is the classified error returned by every Oracle implementation.
type Error struct {
	Op   Operation
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with an operation and kind.
func NewError(op Operation, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf returns the classification carried by err. Errors that were never
// classified are treated as fatal.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return KindFatal
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return err != nil && KindOf(err) == KindTransient
}

// classifyTransport maps an error from the OpenAI client to a Kind.
func classifyTransport(err error) Kind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindFatal
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode)
	}

	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return KindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTransient
	}

	return KindFatal
}

func classifyStatus(status int) Kind {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return KindTransient
	default:
		return KindFatal
	}
}
