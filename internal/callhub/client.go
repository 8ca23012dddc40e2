package callhub

import "callgogo/backend/internal/models"

// Client is the interface for one connected participant's transport
// (WebSocket today). It abstracts the underlying connection so the hub can
// manage client types uniformly and tests can use in-memory doubles.
type Client interface {
	// GetUserID returns the anonymous connection id of the participant.
	GetUserID() string

	// GetSendChannel returns the channel the hub writes outbound events to.
	// It is a send-only channel; delivery order per client is FIFO, which is
	// what preserves same-sender signaling order.
	GetSendChannel() chan<- models.Envelope

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the client's connection and stops its pumps. It must
	// be idempotent and must never close the send channel, so a concurrent
	// Notify can never panic on it.
	Close()
}
