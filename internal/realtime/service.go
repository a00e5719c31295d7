package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opsboard/fleet-sync/internal/bus"
	"github.com/opsboard/fleet-sync/internal/transport"
)

// Service owns the single live transport and keeps local live state
// consistent with the server across disconnects. One instance serves
// the whole application; construct it explicitly and share it.
//
// All mutable state (connection state, outbound queue, subscription
// registry, backoff) is serialized through one mutex. Timers store
// handles and are cancelled on every transition that supersedes them;
// a connection generation counter discards stale callbacks.
type Service struct {
	cfg    Config
	dial   transport.Dialer
	events *bus.Bus
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	client   transport.Client
	gen      uint64 // Connection generation; bumped on every new dial and on Disconnect
	queue    *outboundQueue
	registry *registry
	backoff  *backoff

	heartbeatStop chan struct{} // Non-nil while the heartbeat runs
	connDone      chan struct{} // Non-nil while a read loop runs
	retryTimer    *time.Timer   // Non-nil while a reconnect is scheduled

	lastPongAt time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithDialer sets the transport dialer. Used by tests to substitute
// a fake transport.
func WithDialer(dial transport.Dialer) Option {
	return func(s *Service) {
		s.dial = dial
	}
}

// NewService creates a sync service. It does not dial; the owner
// calls Connect once at startup.
func NewService(cfg Config, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		dial:     transport.NewClient,
		events:   nil,
		logger:   slog.Default(),
		state:    StateDisconnected,
		queue:    newOutboundQueue(cfg.MaxQueueSize),
		registry: newRegistry(),
		backoff:  newBackoff(cfg.ReconnectBaseDelay, cfg.ReconnectMaxDelay),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.events = bus.New(s.logger)

	return s
}

// Events returns the local event bus for On/Off registration.
func (s *Service) Events() *bus.Bus {
	return s.events
}

// Status returns the read-only diagnostic view.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		State:         s.state,
		QueueDepth:    s.queue.Len(),
		Subscriptions: s.registry.Count(),
		LastPongAt:    s.lastPongAt,
	}
}

// Connect starts dialing. No-op while already connecting or connected.
// Also the manual-recovery entry point after Disconnect.
func (s *Service) Connect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateConnecting, StateConnected:
		return
	}

	s.cancelRetryLocked()
	s.gen++
	s.state = StateConnecting
	go s.dialAndAttach(s.gen)
}

// Disconnect tears the connection down and cancels the heartbeat and
// any pending reconnect before returning. The subscription registry
// and outbound queue are preserved so a later Connect resumes cleanly.
func (s *Service) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.cancelRetryLocked()
	s.detachLocked()
	s.state = StateDisconnected

	s.logger.Info("disconnected")
}

// Send transmits an event to the server, best-effort. While not
// connected (or on a write failure) the frame is queued for the next
// successful connection; it is never dropped silently and transport
// errors never reach the caller. The only possible error is a payload
// that cannot be marshaled.
func (s *Service) Send(eventType string, payload any) error {
	env := Envelope{Type: eventType}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		env.Payload = b
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	attempts := 0
	if s.state == StateConnected && s.client != nil {
		err := s.client.Send(data)
		if err == nil {
			return nil
		}
		s.logger.Warn("send failed, queueing", "type", eventType, "error", err)
		attempts = 1
	}

	s.enqueueLocked(OutboundMessage{
		ID:         uuid.New(),
		Data:       data,
		EnqueuedAt: time.Now(),
		Attempts:   attempts,
	})
	return nil
}

// Subscribe registers interest in live updates for an entity. The
// registry entry is deduplicated; the wire frame is sent per call
// while connected. While disconnected no frame is sent; replay after
// the next connect restores server-side targeting.
func (s *Service) Subscribe(entity, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := s.registry.Add(entity, id)
	s.logger.Debug("subscribe", "entity", entity, "id", id, "new", added)

	if s.state == StateConnected && s.client != nil {
		if err := s.client.Send(subscriptionFrame(TypeSubscribe, entity, id)); err != nil {
			s.logger.Warn("subscribe frame send failed",
				"entity", entity,
				"id", id,
				"error", err,
			)
		}
	}
}

// Unsubscribe removes interest in an entity. Full no-op, including no
// network effect, if the entity was not subscribed.
func (s *Service) Unsubscribe(entity, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.registry.Remove(entity, id) {
		return
	}
	s.logger.Debug("unsubscribe", "entity", entity, "id", id)

	if s.state == StateConnected && s.client != nil {
		if err := s.client.Send(subscriptionFrame(TypeUnsubscribe, entity, id)); err != nil {
			s.logger.Warn("unsubscribe frame send failed",
				"entity", entity,
				"id", id,
				"error", err,
			)
		}
	}
}

// dialAndAttach dials a fresh transport for the given generation and,
// on success, installs it and runs the on-connected sequence.
func (s *Service) dialAndAttach(gen uint64) {
	client := s.dial(transport.ClientConfig{
		URL:              s.cfg.URL,
		Token:            s.cfg.Token,
		HandshakeTimeout: s.cfg.HandshakeTimeout,
		WriteTimeout:     s.cfg.WriteTimeout,
		BufferSize:       s.cfg.ReceiveBufferSize,
	}, s.logger)

	err := client.Connect(context.Background())

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.state != StateConnecting {
		// Superseded by Disconnect or a newer attempt
		if err == nil {
			client.Close()
		}
		return
	}

	if err != nil {
		s.logger.Warn("connect failed", "url", s.cfg.URL, "error", err)
		s.state = StateDisconnected
		s.scheduleRetryLocked()
		return
	}

	s.client = client
	s.state = StateConnected
	s.backoff.Reset()
	s.startHeartbeatLocked()

	// Subscriptions replay before the queue flushes: queued application
	// messages may reference entities that need active subscriptions to
	// be processed server-side.
	s.replaySubscriptionsLocked()
	s.flushQueueLocked()

	done := make(chan struct{})
	s.connDone = done
	go s.readLoop(client, gen, done)

	s.logger.Info("connected",
		"url", s.cfg.URL,
		"subscriptions", s.registry.Count(),
		"queued", s.queue.Len(),
	)
}

// readLoop forwards frames and errors from one transport until it
// fails, the service detaches it, or a newer generation replaces it.
func (s *Service) readLoop(client transport.Client, gen uint64, done chan struct{}) {
	for {
		select {
		case <-done:
			return

		case err := <-client.Errors():
			s.connectionLost(gen, err)
			return

		case msg, ok := <-client.Messages():
			if !ok {
				return
			}
			s.handleFrame(msg.Data, msg.ReceivedAt)
		}
	}
}

// handleFrame parses one inbound frame and publishes it. Malformed
// frames are logged and dropped; they never crash the state machine.
func (s *Service) handleFrame(data []byte, receivedAt time.Time) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Warn("malformed frame dropped", "error", err)
		return
	}
	if env.Type == "" {
		s.logger.Warn("frame without type dropped")
		return
	}

	// Heartbeat acknowledgment: consumed silently, never forwarded.
	if env.Type == TypePong {
		s.mu.Lock()
		s.lastPongAt = receivedAt
		s.mu.Unlock()
		return
	}

	s.events.Publish(bus.Event{
		Type:       env.Type,
		Payload:    env.Payload,
		ReceivedAt: receivedAt,
	})
}

// connectionLost handles a transport error or close on an established
// connection.
func (s *Service) connectionLost(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.state != StateConnected {
		return
	}

	s.logger.Warn("connection lost", "error", err)
	s.detachLocked()
	s.state = StateReconnecting
	s.scheduleRetryLocked()
}

// scheduleRetryLocked arms the reconnect timer with the next backoff
// delay. The registry and queue are left intact.
func (s *Service) scheduleRetryLocked() {
	delay := s.backoff.NextDelay()
	gen := s.gen

	s.retryTimer = time.AfterFunc(delay, func() {
		s.retryFired(gen)
	})

	s.logger.Info("reconnect scheduled", "delay", delay)
}

// retryFired transitions a scheduled reconnect into a new dial.
func (s *Service) retryFired(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return // Superseded by Disconnect or an explicit Connect
	}
	if s.state != StateDisconnected && s.state != StateReconnecting {
		return
	}

	s.retryTimer = nil
	s.gen++
	s.state = StateConnecting
	go s.dialAndAttach(s.gen)
}

// cancelRetryLocked disarms a pending reconnect timer.
func (s *Service) cancelRetryLocked() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
}

// detachLocked stops the heartbeat and read loop and closes the
// transport. State transition is the caller's responsibility.
func (s *Service) detachLocked() {
	if s.heartbeatStop != nil {
		close(s.heartbeatStop)
		s.heartbeatStop = nil
	}
	if s.connDone != nil {
		close(s.connDone)
		s.connDone = nil
	}
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
}

// startHeartbeatLocked launches the ping goroutine for the current
// transport. The previous heartbeat is always stopped before a new
// transport is installed, so at most one runs at a time.
func (s *Service) startHeartbeatLocked() {
	stop := make(chan struct{})
	s.heartbeatStop = stop
	client := s.client
	interval := s.cfg.HeartbeatInterval

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		ping, _ := json.Marshal(Envelope{Type: TypePing})

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := client.Send(ping); err != nil {
					// The read loop owns failure handling
					s.logger.Debug("ping send failed", "error", err)
				}
			}
		}
	}()
}

// replaySubscriptionsLocked re-sends every registry entry on the live
// transport. Replay is idempotent server-side.
func (s *Service) replaySubscriptionsLocked() {
	subs := s.registry.Snapshot()
	for _, sub := range subs {
		if err := s.client.Send(subscriptionFrame(TypeSubscribe, sub.Entity, sub.ID)); err != nil {
			s.logger.Warn("subscription replay send failed",
				"entity", sub.Entity,
				"id", sub.ID,
				"error", err,
			)
			return // Transport is dying; the next connect replays again
		}
	}
	if len(subs) > 0 {
		s.logger.Debug("subscriptions replayed", "count", len(subs))
	}
}

// flushQueueLocked drains the outbound queue head-to-tail through the
// live transport. On a mid-flush failure the unsent remainder stays
// queued for the next successful connection.
func (s *Service) flushQueueLocked() {
	flushed := 0
	for s.queue.Len() > 0 {
		msg, _ := s.queue.Peek()
		s.queue.MarkAttempt()
		if err := s.client.Send(msg.Data); err != nil {
			s.logger.Warn("flush interrupted",
				"sent", flushed,
				"remaining", s.queue.Len(),
				"error", err,
			)
			return
		}
		s.queue.Pop()
		flushed++
	}
	if flushed > 0 {
		s.logger.Debug("outbound queue flushed", "count", flushed)
	}
}

// enqueueLocked buffers a message, logging any eviction.
func (s *Service) enqueueLocked(msg OutboundMessage) {
	if evicted, ok := s.queue.Push(msg); ok {
		s.logger.Warn("outbound queue full, evicting oldest",
			"evicted_id", evicted.ID,
			"evicted_age", time.Since(evicted.EnqueuedAt),
		)
	}
}

// subscriptionFrame builds a subscription:add/remove frame.
func subscriptionFrame(frameType, entity, id string) []byte {
	payload, _ := json.Marshal(subscriptionPayload{Entity: entity, ID: id})
	data, _ := json.Marshal(Envelope{Type: frameType, Payload: payload})
	return data
}
