package envelope

import (
	"errors"
	"fmt"
)

var ErrMalformedReply = errors.New("envelope: malformed reply")

// Reply statuses reported by the query endpoint.
const (
	StatusReplied  = "replied"
	StatusRejected = "rejected"
)

type content struct {
	RequestType   string `cbor:"request_type"`
	CanisterID    string `cbor:"canister_id"`
	MethodName    string `cbor:"method_name"`
	Arg           []byte `cbor:"arg"`
	IngressExpiry uint64 `cbor:"ingress_expiry"`
	Sender        []byte `cbor:"sender"`
}

type request struct {
	Content content `cbor:"content"`
}

// Serialize encodes the envelope as {"content": {...}}.
func Serialize(e Envelope) ([]byte, error) {
	if e.Kind != KindCall && e.Kind != KindQuery {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, e.Kind)
	}
	return encMode.Marshal(request{Content: content{
		RequestType:   e.Kind.String(),
		CanisterID:    e.TargetID,
		MethodName:    e.Method,
		Arg:           e.Arg,
		IngressExpiry: e.Expiry,
		Sender:        e.Sender,
	}})
}

// Parse decodes a serialized request. Gateway fakes use it to route requests.
func Parse(b []byte) (Envelope, error) {
	var req request
	if err := decMode.Unmarshal(b, &req); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err)
	}
	kind, err := ParseKind(req.Content.RequestType)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Kind:     kind,
		TargetID: req.Content.CanisterID,
		Method:   req.Content.MethodName,
		Arg:      req.Content.Arg,
		Sender:   req.Content.Sender,
		Expiry:   req.Content.IngressExpiry,
	}, nil
}

type replyBody struct {
	Arg []byte `cbor:"arg"`
}

type replyWire struct {
	Status        string     `cbor:"status"`
	Reply         *replyBody `cbor:"reply,omitempty"`
	RejectCode    uint64     `cbor:"reject_code,omitempty"`
	RejectMessage string     `cbor:"reject_message,omitempty"`
}

// Reply is a decoded query response.
type Reply struct {
	Status        string
	Arg           []byte
	RejectCode    uint64
	RejectMessage string
}

// Replied reports whether the canister answered with a payload.
func (r Reply) Replied() bool {
	return r.Status == StatusReplied
}

// DecodeReply parses a query response body. A body without a status is a
// non-replied answer and keeps whatever reject fields it carries.
func DecodeReply(b []byte) (Reply, error) {
	var w replyWire
	if err := decMode.Unmarshal(b, &w); err != nil {
		return Reply{}, fmt.Errorf("%w: %w", ErrMalformedReply, err)
	}
	r := Reply{
		Status:        w.Status,
		RejectCode:    w.RejectCode,
		RejectMessage: w.RejectMessage,
	}
	if w.Status == StatusReplied {
		if w.Reply == nil {
			return Reply{}, fmt.Errorf("%w: replied without reply.arg", ErrMalformedReply)
		}
		r.Arg = w.Reply.Arg
	}
	return r, nil
}

// EncodeReply is the inverse of DecodeReply.
func EncodeReply(r Reply) ([]byte, error) {
	w := replyWire{
		Status:        r.Status,
		RejectCode:    r.RejectCode,
		RejectMessage: r.RejectMessage,
	}
	if r.Status == StatusReplied {
		w.Reply = &replyBody{Arg: r.Arg}
	}
	return encMode.Marshal(w)
}

// DecodeBody decodes a call response generically. An empty body yields an
// empty map.
func DecodeBody(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := decMode.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedReply, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// EncodeBody encodes an arbitrary call response body.
func EncodeBody(v map[string]any) ([]byte, error) {
	return encMode.Marshal(v)
}
