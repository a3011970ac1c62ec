package advisor

import (
	"errors"
	"strings"
)

// Kind classifies advice generator failures.
type Kind int

const (
	KindGeneric Kind = iota
	KindQuotaExceeded
	KindModelUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindModelUnavailable:
		return "model_unavailable"
	default:
		return "generic"
	}
}

// Error is a classified advisor failure. Error() is the user-facing text;
// the upstream cause is kept for logs.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindQuotaExceeded:
		return "You have reached the request limit. Please wait a moment and try again."
	case KindModelUnavailable:
		return "Model unavailable. Check your Gemini API key."
	default:
		return "I could not process your message. Please try again."
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify maps an upstream error onto a Kind by its message: "quota" or
// "429" mean the quota is exhausted, "404" or "not found" mean the model
// is unavailable.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "quota") || strings.Contains(msg, "429"):
		return &Error{Kind: KindQuotaExceeded, Err: err}
	case strings.Contains(msg, "404") || strings.Contains(msg, "not found"):
		return &Error{Kind: KindModelUnavailable, Err: err}
	default:
		return &Error{Kind: KindGeneric, Err: err}
	}
}

// KindOf reports the Kind of err, or false when err is not an advisor error.
func KindOf(err error) (Kind, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return KindGeneric, false
}
