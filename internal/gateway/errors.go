package gateway

import (
	"errors"
	"fmt"
)

var (
	ErrClosed        = errors.New("gateway: client closed")
	ErrReplyTooLarge = errors.New("gateway: reply exceeds size limit")
)

// TransportError is a network-level failure before a status was received.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is a non-200 gateway response.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// ProtocolDecodeError is a malformed CBOR body or codec payload.
type ProtocolDecodeError struct {
	Err error
}

func (e *ProtocolDecodeError) Error() string {
	return fmt.Sprintf("decode reply: %v", e.Err)
}

func (e *ProtocolDecodeError) Unwrap() error { return e.Err }

// RemoteRejection is an explicit refusal reported by the canister.
type RemoteRejection struct {
	Status  string
	Code    uint64
	Message string
}

func (e *RemoteRejection) Error() string {
	return fmt.Sprintf("%s (code %d): %s", e.Status, e.Code, e.Message)
}

// EncodingError is an argument that could not be encoded. Nothing is sent.
type EncodingError struct {
	Method string
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode %s argument: %v", e.Method, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// ExpiryError is an envelope whose ingress expiry could not be computed or
// has already passed.
type ExpiryError struct {
	Err error
}

func (e *ExpiryError) Error() string {
	return fmt.Sprintf("ingress expiry: %v", e.Err)
}

func (e *ExpiryError) Unwrap() error { return e.Err }

// outcomeLabel is the metrics label for err.
func outcomeLabel(err error) string {
	var (
		httpErr   *HTTPError
		decodeErr *ProtocolDecodeError
		rejection *RemoteRejection
		encodeErr *EncodingError
		expiryErr *ExpiryError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &httpErr):
		return "http_error"
	case errors.As(err, &decodeErr):
		return "decode_error"
	case errors.As(err, &rejection):
		return "rejected"
	case errors.As(err, &encodeErr):
		return "encode_error"
	case errors.As(err, &expiryErr):
		return "expired"
	default:
		return "transport_error"
	}
}
