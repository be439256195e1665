package domain

import (
	"errors"
	"net/http"
)

// Kind classifies a domain error so the HTTP layer can map it to a status
// code without parsing message text.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindAuth             Kind = "auth"
	KindPermission       Kind = "permission"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindUnsupportedAsset Kind = "unsupported_asset"
	KindUpstream         Kind = "upstream"
	KindInternal         Kind = "internal"
)

// Error is a classified domain error. Message is safe to return to clients;
// the wrapped cause is for logs only.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// E creates a new domain error with the given kind and client-safe message.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a cause to a classified error. The cause is preserved for
// logging and errors.Is/As but never serialized to clients.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the kind from an error chain, defaulting to KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// ClientMessage returns the client-safe message for an error chain. Unknown
// errors collapse to a generic message so internal detail never leaks.
func ClientMessage(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal server error"
}

// HTTPStatus maps an error chain to the HTTP status code for its kind.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindUnsupportedAsset:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindPermission:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
