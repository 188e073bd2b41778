// Package mailbox moves addressed agent envelopes between processes.
package mailbox

import "context"

// Mailbox delivers envelopes to named addresses.
//
// Subscribe returns a channel of envelopes addressed to address. The channel
// stops producing once ctx is done or the mailbox is closed.
type Mailbox interface {
	Send(ctx context.Context, dest string, env Envelope) error
	Subscribe(ctx context.Context, address string) (<-chan Envelope, error)
	Close() error
}
