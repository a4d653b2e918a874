package translator

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure classes adapters report
type ErrorKind string

const (
	KindValidation              ErrorKind = "validation"
	KindLanguagePairUnsupported ErrorKind = "language-pair-unsupported"
	KindUserCancelled           ErrorKind = "user-cancelled"
	KindRateLimited             ErrorKind = "rate-limited"
	KindTransient               ErrorKind = "transient"
	KindAuth                    ErrorKind = "auth"
)

// Fatal reports whether the kind aborts the whole request
func (k ErrorKind) Fatal() bool {
	return k == KindLanguagePairUnsupported || k == KindUserCancelled
}

// Retryable reports whether a call failing with this kind may be attempted
// again. Rate limiting is final for the call that hit it.
func (k ErrorKind) Retryable() bool {
	return k == KindTransient
}

// Rank orders kinds by how specific they are to the caller; higher wins
func (k ErrorKind) Rank() int {
	switch k {
	case KindLanguagePairUnsupported:
		return 5
	case KindAuth:
		return 4
	case KindRateLimited:
		return 3
	case KindTransient:
		return 2
	case KindValidation:
		return 1
	}
	return 0
}

// Error is a classified failure produced at the adapter boundary
type Error struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Provider != "" {
		return e.Provider + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError classifies err as kind
func NewError(kind ErrorKind, provider string, err error) *Error {
	return &Error{Kind: kind, Provider: provider, Err: err}
}

// Errorf builds a classified error from a format string
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err. Context cancellation maps to
// KindUserCancelled; unclassified errors are treated as transient.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	if errors.Is(err, context.Canceled) {
		return KindUserCancelled
	}

	return KindTransient
}

// IsKind reports whether err is classified as kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// FromStatus classifies an HTTP status code returned by a provider
func FromStatus(provider string, status int, err error) *Error {
	e := &Error{Kind: KindTransient, Provider: provider, StatusCode: status, Err: err}

	switch {
	case status == 401 || status == 403:
		e.Kind = KindAuth
	case status == 429:
		e.Kind = KindRateLimited
	case status == 400 || status == 404 || status == 422:
		e.Kind = KindValidation
	}

	return e
}

// Classify wraps a transport error, keeping an existing classification and
// mapping context cancellation to KindUserCancelled
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	if errors.Is(err, context.Canceled) {
		return NewError(KindUserCancelled, provider, err)
	}

	return NewError(KindTransient, provider, err)
}
