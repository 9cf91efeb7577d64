package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	RelayErrorChannelNotFound  = "RELAY_CHANNEL_NOT_FOUND"
	RelayErrorAuthFailed       = "RELAY_AUTH_FAILED"
	RelayErrorMalformedPayload = "RELAY_MALFORMED_PAYLOAD"
	RelayErrorStatusUnknown    = "RELAY_STATUS_UNKNOWN"
	RelayErrorMsgNotFound      = "RELAY_MSG_NOT_FOUND"
	RelayErrorBadInput         = "RELAY_BAD_INPUT"
	RelayErrorRateLimited      = "RELAY_RATE_LIMITED"
	RelayErrorInternal         = "RELAY_INTERNAL_ERROR"
)

// ChannelNotFound is the 404-equivalent for a route whose selector matched no
// dispatchable channel. Distinct from AuthFailed: the request is inert.
func ChannelNotFound(message string, metadata map[string]any) error {
	return relayError(message, goerrors.CategoryNotFound, http.StatusNotFound, RelayErrorChannelNotFound, metadata)
}

// AuthFailed rejects a request whose signature, token or declared address did
// not validate against the channel. No state change may follow it.
func AuthFailed(message string, metadata map[string]any) error {
	return relayError(message, goerrors.CategoryAuth, http.StatusUnauthorized, RelayErrorAuthFailed, metadata)
}

// MalformedPayload reports a payload missing or failing to parse a required
// field. One bad field fails the whole request, never a partial success.
func MalformedPayload(message string, metadata map[string]any) error {
	return relayError(message, goerrors.CategoryBadInput, http.StatusBadRequest, RelayErrorMalformedPayload, metadata)
}

// StatusUnknown reports a raw gateway status code with no entry in the
// provider's translation table. The raw code is echoed, never guessed at.
func StatusUnknown(message string, metadata map[string]any) error {
	return relayError(message, goerrors.CategoryBadInput, http.StatusBadRequest, RelayErrorStatusUnknown, metadata)
}

// MsgNotFound reports a status callback referencing no known message.
func MsgNotFound(message string, metadata map[string]any) error {
	return relayError(message, goerrors.CategoryNotFound, http.StatusNotFound, RelayErrorMsgNotFound, metadata)
}

// RateLimited rejects a callback source that exceeded its request budget.
// Gateways treat a 429 as a signal to back off and retry later.
func RateLimited(message string, metadata map[string]any) error {
	return relayError(message, goerrors.CategoryRateLimit, http.StatusTooManyRequests, RelayErrorRateLimited, metadata)
}

func BadInput(message string, metadata map[string]any) error {
	return relayError(message, goerrors.CategoryBadInput, http.StatusBadRequest, RelayErrorBadInput, metadata)
}

func Internal(message string, metadata map[string]any) error {
	return relayError(message, goerrors.CategoryInternal, http.StatusInternalServerError, RelayErrorInternal, metadata)
}

func relayError(
	message string,
	category goerrors.Category,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// WrapError keeps a source error while giving it the relay envelope.
func WrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	if source == nil {
		return relayError(message, category, code, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// IsTextCode reports whether err carries the given relay text code.
func IsTextCode(err error, textCode string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == textCode
}

// RelayErrorMapper normalizes any error into the relay envelope, filling in
// missing codes from the category.
func RelayErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureRelayEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "channel") && strings.Contains(msg, "not found"):
		return ensureRelayEnvelope(goerrors.New(err.Error(), goerrors.CategoryNotFound).WithTextCode(RelayErrorChannelNotFound))
	case strings.Contains(msg, "signature"), strings.Contains(msg, "token"):
		return ensureRelayEnvelope(goerrors.New(err.Error(), goerrors.CategoryAuth).WithTextCode(RelayErrorAuthFailed))
	case strings.Contains(msg, "missing"), strings.Contains(msg, "invalid"), strings.Contains(msg, "required"):
		return ensureRelayEnvelope(goerrors.New(err.Error(), goerrors.CategoryBadInput).WithTextCode(RelayErrorMalformedPayload))
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureRelayEnvelope(mapped)
}

func ensureRelayEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = relayHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultRelayTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultRelayTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return RelayErrorBadInput
	case goerrors.CategoryNotFound:
		return RelayErrorChannelNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return RelayErrorAuthFailed
	case goerrors.CategoryRateLimit:
		return RelayErrorRateLimited
	default:
		return RelayErrorInternal
	}
}

func relayHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
