// envelope.go -- Uniform response wrapper shared by every backend endpoint.
package apiclient

import (
	"encoding/json"
	"net/http"
)

// Pagination accompanies list endpoints.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// Envelope is the backend's response shape: {success, data?, error?, message?, pagination?}.
// Success is the only reliable failure signal. Transport and parse failures are
// folded into the same shape with Success false, so callers never see a Go error.
type Envelope[T any] struct {
	Success    bool        `json:"success"`
	Data       T           `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Message    string      `json:"message,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`

	// Status is the HTTP status of the final response, 0 when none arrived.
	Status int `json:"-"`
	// Outcome is one of the Outcome constants, set by the executor.
	Outcome string `json:"-"`
}

// Raw is the envelope for endpoints whose data has no fixed shape
// (webhooks, env info) or carries nothing at all (logout, delete).
type Raw = Envelope[json.RawMessage]

// Failure returns a Success=false envelope carrying msg.
func Failure[T any](msg string) Envelope[T] {
	return Envelope[T]{Success: false, Error: msg}
}

// Unavailable reports whether the failure means the backend could not serve the
// call at all (no response, an unreadable one, or a 5xx) rather than a refusal.
// Envelopes not built by the executor count as unavailable.
func (e Envelope[T]) Unavailable() bool {
	if e.Success {
		return false
	}
	switch e.Outcome {
	case OutcomeTransportError, OutcomeParseError, "":
		return true
	case OutcomeSessionExpired:
		return false
	}
	return e.Status >= http.StatusInternalServerError
}

// ErrorText picks the most useful human message from a failed envelope,
// falling back to def when the backend sent neither error nor message.
func (e Envelope[T]) ErrorText(def string) string {
	switch {
	case e.Error != "":
		return e.Error
	case e.Message != "":
		return e.Message
	default:
		return def
	}
}
