package agent

import "github.com/danmuck/rsvpctl/internal/action"

// Message type tags carried in mailbox.Envelope.Type.
const (
	TypeChatMessage              = "chat_message"
	TypeStructuredOutputRequest  = "structured_output_request"
	TypeStructuredOutputResponse = "structured_output_response"
	TypeRSVPResponse             = "rsvp_response"
)

// ChatMessage is free text from a user.
type ChatMessage struct {
	Message       string `json:"message"`
	SenderAddress string `json:"sender_address,omitempty"`
}

// StructuredOutputRequest asks the LLM to turn Message into an action payload.
// UserAddress is where the final answer goes.
type StructuredOutputRequest struct {
	Message     string `json:"message"`
	UserAddress string `json:"user_address"`
}

// StructuredOutputResponse is the LLM's answer to a StructuredOutputRequest.
type StructuredOutputResponse struct {
	action.Payload
	UserAddress string `json:"user_address"`
}

// RSVPResponse is the reply delivered to the user.
type RSVPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}
