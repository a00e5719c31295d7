package realtime

// outboundQueue is a bounded FIFO ring buffer for messages produced
// while the transport is unavailable. At capacity the oldest entry is
// evicted first: under sustained disconnection, recent state changes
// are worth more than stale ones.
//
// Not safe for concurrent use; the service guards it with its mutex.
type outboundQueue struct {
	buf      []OutboundMessage
	head     int // read position
	tail     int // write position
	count    int
	capacity int

	// Stats
	totalEnqueued int64
	totalEvicted  int64
}

func newOutboundQueue(capacity int) *outboundQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &outboundQueue{
		buf:      make([]OutboundMessage, capacity),
		capacity: capacity,
	}
}

// Push appends to the tail, evicting the head first when full.
// Returns the evicted message and true if an eviction happened.
func (q *outboundQueue) Push(msg OutboundMessage) (OutboundMessage, bool) {
	var evicted OutboundMessage
	var didEvict bool

	if q.count == q.capacity {
		evicted, _ = q.Pop()
		q.totalEvicted++
		didEvict = true
	}

	q.buf[q.tail] = msg
	q.tail = (q.tail + 1) % q.capacity
	q.count++
	q.totalEnqueued++

	return evicted, didEvict
}

// Peek returns the head without removing it.
func (q *outboundQueue) Peek() (OutboundMessage, bool) {
	if q.count == 0 {
		return OutboundMessage{}, false
	}
	return q.buf[q.head], true
}

// Pop removes and returns the head.
func (q *outboundQueue) Pop() (OutboundMessage, bool) {
	if q.count == 0 {
		return OutboundMessage{}, false
	}

	msg := q.buf[q.head]
	q.buf[q.head] = OutboundMessage{} // Clear reference for GC
	q.head = (q.head + 1) % q.capacity
	q.count--

	return msg, true
}

// MarkAttempt increments the attempt counter on the head entry.
func (q *outboundQueue) MarkAttempt() {
	if q.count > 0 {
		q.buf[q.head].Attempts++
	}
}

// Len returns the number of queued messages.
func (q *outboundQueue) Len() int {
	return q.count
}
