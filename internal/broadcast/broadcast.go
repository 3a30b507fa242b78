// Package broadcast implements a bounded multi-producer/multi-consumer fan-
// out primitive: every subscribed receiver gets every published item,
// except that a receiver which falls behind is told it's lagging and
// resumes from the next published item rather than blocking the publisher.
package broadcast

import "sync"

// Event is a single unsolicited notification fanned out to subscribed
// sessions.
type Event struct {
	Key   string
	Paths []string
}

// Capacity is the buffer size of each subscriber's channel, per the
// bounded-channel requirement on the broadcast path.
const Capacity = 100

// Hub fans out events to any number of subscribers. A subscriber that
// doesn't drain its channel fast enough silently drops events rather than
// stalling the publisher; correctness is restored by the next matching
// filesystem event, since invalidation always precedes broadcast.
type Hub struct {
	mutex       sync.Mutex
	subscribers map[int]subscriberChannel
	nextID      int
}

// subscriberChannel pairs a subscriber's event channel with the loss
// counter Publish marks when that channel's buffer is full.
type subscriberChannel struct {
	channel chan Event
	lost    *lossCounter
}

// NewHub creates an empty broadcast hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[int]subscriberChannel)}
}

// Subscription is a single subscriber's handle on the hub. Events arrives
// on C; Lagged reports whether any event was dropped for this subscriber
// since it was last checked.
type Subscription struct {
	hub  *Hub
	id   int
	C    <-chan Event
	lost *lossCounter
}

// lossCounter tracks whether this subscriber has missed any events,
// read/reset independently of the channel itself.
type lossCounter struct {
	mutex  sync.Mutex
	lagged bool
}

func (l *lossCounter) mark() {
	l.mutex.Lock()
	l.lagged = true
	l.mutex.Unlock()
}

// Lagged reports and clears whether events were dropped for this
// subscriber since the last call.
func (s *Subscription) Lagged() bool {
	s.lost.mutex.Lock()
	defer s.lost.mutex.Unlock()
	lagged := s.lost.lagged
	s.lost.lagged = false
	return lagged
}

// Subscribe registers a new subscriber and returns its handle. The caller
// must call Unsubscribe when done to release the channel.
func (h *Hub) Subscribe() *Subscription {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	id := h.nextID
	h.nextID++
	lost := &lossCounter{}
	channel := make(chan Event, Capacity)
	h.subscribers[id] = subscriberChannel{channel: channel, lost: lost}

	return &Subscription{hub: h, id: id, C: channel, lost: lost}
}

// Unsubscribe removes a subscriber from the hub. Further Publish calls will
// not reach it.
func (h *Hub) Unsubscribe(s *Subscription) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if sub, ok := h.subscribers[s.id]; ok {
		delete(h.subscribers, s.id)
		close(sub.channel)
	}
}

// Publish fans event out to every current subscriber using a non-blocking
// send; a subscriber whose buffer is full has the event dropped and is
// marked lagged.
func (h *Hub) Publish(event Event) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, sub := range h.subscribers {
		select {
		case sub.channel <- event:
		default:
			sub.lost.mark()
		}
	}
}
