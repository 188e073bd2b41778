// Package envelope builds and serializes the CBOR request envelopes sent to the
// canister gateway and parses its replies.
//
// Ownership boundary:
// - request metadata (kind, target, method, sender, expiry)
// - CBOR wire shapes for requests and replies
//
// Argument bytes are produced by the candid codec and carried opaquely.
package envelope

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/rsvpctl/internal/clock"
	"github.com/danmuck/rsvpctl/internal/protocol/candid"
)

// DefaultValidity is how long a built envelope stays acceptable to the gateway.
const DefaultValidity = 300 * time.Second

// AnonymousSender is the sender identity of unsigned requests.
var AnonymousSender = []byte{0x04}

var (
	ErrExpired           = errors.New("envelope: ingress expiry has passed")
	ErrExpiryComputation = errors.New("envelope: cannot compute ingress expiry")
	ErrInvalidEnvelope   = errors.New("envelope: invalid envelope")
	ErrUnknownKind       = errors.New("envelope: unknown request kind")
)

// Kind separates state-mutating calls from read-only queries.
type Kind uint8

const (
	KindCall Kind = iota + 1
	KindQuery
)

func (k Kind) String() string {
	switch k {
	case KindCall:
		return "call"
	case KindQuery:
		return "query"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind maps a wire request_type back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "call":
		return KindCall, nil
	case "query":
		return KindQuery, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Envelope is one request ready for serialization. Expiry is Unix nanoseconds.
type Envelope struct {
	Kind     Kind
	TargetID string
	Method   string
	Arg      []byte
	Sender   []byte
	Expiry   uint64
}

// Validate checks the envelope is well formed and not yet expired at now.
func (e Envelope) Validate(now time.Time) error {
	if e.Kind != KindCall && e.Kind != KindQuery {
		return fmt.Errorf("%w: %s", ErrUnknownKind, e.Kind)
	}
	if strings.TrimSpace(e.TargetID) == "" {
		return fmt.Errorf("%w: missing target id", ErrInvalidEnvelope)
	}
	if strings.TrimSpace(e.Method) == "" {
		return fmt.Errorf("%w: missing method", ErrInvalidEnvelope)
	}
	if !bytes.HasPrefix(e.Arg, []byte(candid.Magic)) {
		return fmt.Errorf("%w: argument missing magic", ErrInvalidEnvelope)
	}
	if len(e.Sender) == 0 {
		return fmt.Errorf("%w: missing sender", ErrInvalidEnvelope)
	}
	nowNS := now.UnixNano()
	if nowNS >= 0 && e.Expiry <= uint64(nowNS) {
		return fmt.Errorf("%w: expiry %d <= now %d", ErrExpired, e.Expiry, nowNS)
	}
	return nil
}

// Builder stamps envelopes with the anonymous sender and an expiry relative to
// its clock.
type Builder struct {
	Clock    clock.Clock
	Validity time.Duration
}

// NewBuilder returns a Builder using DefaultValidity.
func NewBuilder(c clock.Clock) Builder {
	return Builder{Clock: c, Validity: DefaultValidity}
}

// Build assembles an envelope. Arg must already be codec-encoded.
func (b Builder) Build(kind Kind, targetID, method string, arg []byte) (Envelope, error) {
	c := b.Clock
	if c == nil {
		c = clock.Real()
	}
	validity := b.Validity
	if validity <= 0 {
		validity = DefaultValidity
	}
	now := c.Now()
	if now.Before(time.Unix(0, 0)) {
		return Envelope{}, fmt.Errorf("%w: clock reads %s", ErrExpiryComputation, now.UTC().Format(time.RFC3339))
	}
	expiry := now.Add(validity).UnixNano()
	if expiry < 0 {
		return Envelope{}, fmt.Errorf("%w: expiry overflows", ErrExpiryComputation)
	}
	sender := make([]byte, len(AnonymousSender))
	copy(sender, AnonymousSender)
	env := Envelope{
		Kind:     kind,
		TargetID: targetID,
		Method:   method,
		Arg:      arg,
		Sender:   sender,
		Expiry:   uint64(expiry),
	}
	if err := env.Validate(now); err != nil {
		return Envelope{}, err
	}
	return env, nil
}
