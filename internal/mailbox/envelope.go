package mailbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrClosed          = errors.New("mailbox: closed")
	ErrInvalidAddress  = errors.New("mailbox: invalid address")
	ErrInvalidEnvelope = errors.New("mailbox: invalid envelope")
)

// Envelope is one addressed agent message. Payload holds the JSON body of the
// message named by Type.
type Envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Sender  string          `json:"sender"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sent_at"`
}

// NewEnvelope marshals payload and stamps a fresh message id.
func NewEnvelope(msgType, sender string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("mailbox: marshal %s payload: %w", msgType, err)
	}
	env := Envelope{
		ID:      uuid.NewString(),
		Type:    msgType,
		Sender:  sender,
		Payload: raw,
		SentAt:  time.Now().UTC(),
	}
	return env, env.Validate()
}

func (e Envelope) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidEnvelope)
	}
	if strings.TrimSpace(e.Type) == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidEnvelope)
	}
	if strings.TrimSpace(e.Sender) == "" {
		return fmt.Errorf("%w: sender is required", ErrInvalidEnvelope)
	}
	return nil
}

// Decode unmarshals the payload into out.
func (e Envelope) Decode(out any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: empty %s payload", ErrInvalidEnvelope, e.Type)
	}
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return fmt.Errorf("%w: decode %s payload: %w", ErrInvalidEnvelope, e.Type, err)
	}
	return nil
}

func checkAddress(address string) error {
	if strings.TrimSpace(address) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if strings.ContainsAny(address, " \t\r\n") {
		return fmt.Errorf("%w: %q contains whitespace", ErrInvalidAddress, address)
	}
	return nil
}
