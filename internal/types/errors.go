package types

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure by who has to act on it.
type Kind string

const (
	KindInput     Kind = "input"
	KindAuth      Kind = "auth"
	KindBroker    Kind = "broker"
	KindTransport Kind = "transport"
	KindConfig    Kind = "config"
)

var (
	ErrMissingField         = errors.New("missing mandatory field")
	ErrUnresolvedInstrument = errors.New("instrument token not found")
	ErrUnmappedValue        = errors.New("value has no broker mapping")
	ErrUnauthenticated      = errors.New("session not authenticated")
	ErrInvalidAPIKey        = errors.New("invalid api key")
	ErrMalformedPayload     = errors.New("malformed broker payload")
	ErrUnknownBroker        = errors.New("unknown broker")
	ErrNoOrderID            = errors.New("order placed but order ID not found in response")
	ErrLockTimeout          = errors.New("reconciliation lock not acquired")
)

// Error is the typed failure surfaced by adapters and the gateway.
type Error struct {
	Kind    Kind
	Op      string
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the failure onto the status the web layer should return.
func (e *Error) HTTPStatus() int {
	if e.Code != 0 && e.Code != http.StatusOK {
		return e.Code
	}
	switch e.Kind {
	case KindInput:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may retry. Only transport failures are.
func (e *Error) Retryable() bool { return e.Kind == KindTransport }

// InputError reports a request the caller must fix.
func InputError(op string, err error, msg string) *Error {
	return &Error{Kind: KindInput, Op: op, Code: http.StatusBadRequest, Message: msg, Err: err}
}

// AuthError reports missing or mismatched credentials.
func AuthError(op string, err error, code int, msg string) *Error {
	return &Error{Kind: KindAuth, Op: op, Code: code, Message: msg, Err: err}
}

// BrokerError reports a non-success answer from the broker with its own code.
func BrokerError(op string, code int, msg string) *Error {
	return &Error{Kind: KindBroker, Op: op, Code: code, Message: msg}
}

// TransportError wraps a network failure.
func TransportError(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Err: err}
}

// MalformedError reports a broker payload missing expected keys.
func MalformedError(op string, detail string) *Error {
	return &Error{Kind: KindBroker, Op: op, Message: detail, Err: ErrMalformedPayload}
}

// ConfigError reports an adapter that is incomplete for a broker.
func ConfigError(op string, err error, msg string) *Error {
	return &Error{Kind: KindConfig, Op: op, Message: msg, Err: err}
}

// KindOf returns the kind of err, or KindTransport for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}

// Failed converts err into the error envelope returned to the web layer.
func Failed(err error) OrderResult {
	var e *Error
	if errors.As(err, &e) {
		msg := e.Message
		if msg == "" {
			msg = e.Error()
		}
		return OrderResult{Status: StatusError, Message: msg, HTTPStatus: e.HTTPStatus()}
	}
	return OrderResult{Status: StatusError, Message: err.Error(), HTTPStatus: http.StatusInternalServerError}
}
