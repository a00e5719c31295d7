package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// State is the connection state of the sync service.
// Exactly one state holds at any time; transitions are driven only by
// transport events, timers, or explicit Connect/Disconnect calls.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// Reserved frame types. Everything else is forwarded to the bus.
const (
	TypePing        = "ping"
	TypePong        = "pong"
	TypeSubscribe   = "subscription:add"
	TypeUnsubscribe = "subscription:remove"
)

// Envelope is the wire format: UTF-8 JSON text frames with a required
// type and arbitrary payload.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// subscriptionPayload is the payload of subscription:add/remove frames.
type subscriptionPayload struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
}

// Subscription identifies one observed entity.
type Subscription struct {
	Entity string
	ID     string
}

// OutboundMessage is a frame waiting in the outbound queue. Created
// per send call, discarded on successful transmission or eviction.
type OutboundMessage struct {
	ID         uuid.UUID // Correlation ID for logs
	Data       []byte    // Marshaled envelope
	EnqueuedAt time.Time
	Attempts   int // Send attempts made so far
}

// Status is the read-only diagnostic view of the service.
type Status struct {
	State         State     `json:"state"`
	QueueDepth    int       `json:"queue_depth"`
	Subscriptions int       `json:"subscriptions"`
	LastPongAt    time.Time `json:"last_pong_at,omitempty"`
}

// Config configures the sync service.
type Config struct {
	URL                string        // WebSocket endpoint
	Token              string        // Bearer token ("" = no auth)
	ReconnectBaseDelay time.Duration // First reconnect delay
	ReconnectMaxDelay  time.Duration // Backoff cap
	HeartbeatInterval  time.Duration // Interval between ping frames
	MaxQueueSize       int           // Outbound queue bound
	WriteTimeout       time.Duration // Transport write deadline
	HandshakeTimeout   time.Duration // Transport dial deadline
	ReceiveBufferSize  int           // Transport receive channel size
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReconnectBaseDelay: 1 * time.Second,
		ReconnectMaxDelay:  30 * time.Second,
		HeartbeatInterval:  30 * time.Second,
		MaxQueueSize:       100,
		WriteTimeout:       5 * time.Second,
		HandshakeTimeout:   10 * time.Second,
		ReceiveBufferSize:  1000,
	}
}
