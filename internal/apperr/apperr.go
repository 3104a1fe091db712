// Package apperr holds the error taxonomy shared by the entitlement engine
// and its HTTP mapping.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind is the category of an engine error.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindInvalidTransition    Kind = "invalid_transition"
	KindForbidden            Kind = "forbidden"
	KindQuotaExceeded        Kind = "quota_exceeded"
	KindGateway              Kind = "gateway_error"
	KindSignatureInvalid     Kind = "signature_invalid"
	KindSubscriptionRequired Kind = "subscription_required"
	KindUnauthenticated      Kind = "unauthenticated"
	KindTimeout              Kind = "timeout"
	KindInternal             Kind = "internal_error"
)

// Sentinels for errors.Is checks against a kind.
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrForbidden            = errors.New("forbidden")
	ErrQuotaExceeded        = errors.New("quota exceeded")
	ErrGateway              = errors.New("billing gateway error")
	ErrSignatureInvalid     = errors.New("signature invalid")
	ErrSubscriptionRequired = errors.New("subscription required")
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrTimeout              = errors.New("timeout")
)

var sentinels = map[Kind]error{
	KindNotFound:             ErrNotFound,
	KindInvalidTransition:    ErrInvalidTransition,
	KindForbidden:            ErrForbidden,
	KindQuotaExceeded:        ErrQuotaExceeded,
	KindGateway:              ErrGateway,
	KindSignatureInvalid:     ErrSignatureInvalid,
	KindSubscriptionRequired: ErrSubscriptionRequired,
	KindUnauthenticated:      ErrUnauthenticated,
	KindTimeout:              ErrTimeout,
}

// Error is a categorized engine error. Message is safe to show to the caller;
// Err may carry internal detail and is only logged.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	if s, ok := sentinels[e.Kind]; ok && s == target {
		return true
	}
	return false
}

// New builds an error of the given kind.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap builds an error of the given kind around err.
func Wrap(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// WithDetails attaches caller-visible fields (limits, missing permissions).
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

func NotFound(op, message string) *Error { return New(KindNotFound, op, message) }

func InvalidTransition(op, message string) *Error { return New(KindInvalidTransition, op, message) }

func Gateway(op string, err error) *Error {
	return Wrap(KindGateway, op, "billing provider request failed", err)
}

// FromContext converts a context deadline into a Timeout error and wraps
// anything else as internal.
func FromContext(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(KindTimeout, op, "operation timed out", err)
	}
	return Wrap(KindInternal, op, "internal error", err)
}

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

// HTTPStatus maps an error to its response code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidTransition, KindGateway, KindSignatureInvalid:
		return http.StatusBadRequest
	case KindForbidden, KindQuotaExceeded:
		return http.StatusForbidden
	case KindSubscriptionRequired:
		return http.StatusPaymentRequired
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Write renders err as the JSON error body used across the API.
func Write(c *gin.Context, err error) {
	kind := KindOf(err)
	body := gin.H{"error": string(kind)}

	var ae *Error
	if errors.As(err, &ae) && kind != KindInternal {
		if ae.Message != "" {
			body["message"] = ae.Message
		}
		for k, v := range ae.Details {
			body[k] = v
		}
	} else {
		body["message"] = "internal error"
	}

	c.AbortWithStatusJSON(HTTPStatus(err), body)
}
