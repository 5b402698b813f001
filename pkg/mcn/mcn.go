// Package mcn is an in-process publish/subscribe bus for a fixed set of named
// topics. Each topic carries a fixed-size opaque record: publishers overwrite
// the topic's single payload buffer, subscribers poll a per-subscription
// renewal flag (or block on an Event) and copy the latest value out. Late
// readers coalesce; there is no history and no backpressure.
//
// All list and payload mutations happen under one package-global critical
// section, so a publish is atomic with respect to every reader: a consumer
// that observes its renewal flag set always copies the just-published value
// or a newer one, never a torn one.
package mcn

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// MaxSubscribers bounds the number of concurrent subscriptions per topic.
const MaxSubscribers = 30

// critical is the global critical section. Every subscriber-list mutation and
// every payload-vs-renewal transition happens inside it. Callbacks and event
// waits never run while it is held.
var critical sync.Mutex

// EchoFunc formats a hub's current payload for the console. Registered at
// advertise time, invoked by the shell's echo command.
type EchoFunc func(w io.Writer, h *Hub) error

// Hub is the static record for one topic: the current payload and the
// subscriber list. Hubs are created once with Define and keep a stable
// identity for the life of the process.
type Hub struct {
	name string
	size int

	payload    []byte
	head, tail *Node
	linkNum    int
	published  bool
	publishes  uint64
	suspended  atomic.Bool
	echo       EchoFunc

	freqWindow  [freqWindowLen]uint32
	windowIndex int
	freq        float32
}

// Define creates the hub for a topic of the given record size in bytes. The
// topic does not accept publishes or appear in the registry until Advertise
// is called.
func Define(name string, size int) *Hub {
	if name == "" {
		panic("mcn: empty topic name")
	}
	if size <= 0 {
		panic("mcn: non-positive topic size")
	}
	return &Hub{name: name, size: size}
}

// Advertise registers the hub as a publish target: allocates the payload
// buffer, records the optional echo function and appends the hub to the
// registry. Returns ErrAlreadyAdvertised on a second call.
func (h *Hub) Advertise(echo EchoFunc) error {
	if h == nil {
		panic("mcn: nil hub")
	}
	// Allocate outside the critical section; only link under it.
	buf := make([]byte, h.size)
	critical.Lock()
	defer critical.Unlock()
	if h.payload != nil {
		return ErrAlreadyAdvertised
	}
	h.payload = buf
	h.echo = echo
	h.freqWindow = [freqWindowLen]uint32{}
	h.windowIndex = 0
	registerHub(h)
	return nil
}

// Subscribe links a new subscription onto the hub. Both event and cb are
// optional: event enables PollSync, cb is invoked after every publish. If the
// topic was already published the new node starts renewed and cb fires once
// with the current payload before Subscribe returns, so late subscribers
// observe the last value exactly once.
//
// Returns ErrSubscriberLimit when the hub already has MaxSubscribers nodes.
func (h *Hub) Subscribe(event *Event, cb PublishCallback) (*Node, error) {
	if h == nil {
		panic("mcn: nil hub")
	}
	node := &Node{event: event, cb: cb}

	critical.Lock()
	if h.linkNum >= MaxSubscribers {
		critical.Unlock()
		log.Error().Str("topic", h.name).Int("limit", MaxSubscribers).
			Msg("mcn subscriber limit reached")
		return nil, ErrSubscriberLimit
	}
	if h.tail == nil {
		h.head, h.tail = node, node
	} else {
		h.tail.next = node
		h.tail = node
	}
	h.linkNum++
	catchUp := h.published
	if catchUp {
		node.renewal = true
	}
	payload := h.payload
	critical.Unlock()

	if catchUp && cb != nil {
		cb(payload)
	}
	return node, nil
}

// Unsubscribe unlinks the node from the hub's subscriber list. Returns
// ErrNotFound if the node is not linked to this hub; that is benign and
// leaves the list unchanged. The search and the unlink happen under the same
// critical section so concurrent unsubscribes serialize cleanly.
func (h *Hub) Unsubscribe(node *Node) error {
	if h == nil {
		panic("mcn: nil hub")
	}
	if node == nil {
		panic("mcn: nil node")
	}
	critical.Lock()
	defer critical.Unlock()

	cur := h.head
	var prev *Node
	for cur != nil && cur != node {
		prev = cur
		cur = cur.next
	}
	if cur == nil {
		return ErrNotFound
	}
	if prev == nil {
		h.head = cur.next
	} else {
		prev.next = cur.next
	}
	if h.tail == cur {
		h.tail = prev
	}
	cur.next = nil
	h.linkNum--
	return nil
}

// Publish copies data into the hub payload and notifies every subscriber:
// each node's renewal flag is set and its event, if any, signaled inside the
// critical section; callbacks run afterwards in the publisher's goroutine.
// data must be exactly the topic's record size.
//
// Returns ErrNotAdvertised before Advertise and ErrSuspended while the hub is
// suspended; a suspended publish leaves subscribers and the frequency window
// untouched.
func (h *Hub) Publish(data []byte) error {
	if h == nil {
		panic("mcn: nil hub")
	}
	if len(data) != h.size {
		panic("mcn: payload size mismatch")
	}

	critical.Lock()
	if h.payload == nil {
		critical.Unlock()
		return ErrNotAdvertised
	}
	if h.suspended.Load() {
		critical.Unlock()
		return ErrSuspended
	}
	h.freqWindow[h.windowIndex]++
	copy(h.payload, data)

	// Snapshot callbacks while the list is stable; they are invoked after the
	// critical section is released, so a callback may unsubscribe its own
	// node without racing the walk.
	var cbs []PublishCallback
	for n := h.head; n != nil; n = n.next {
		n.renewal = true
		if n.event != nil {
			n.event.Signal()
		}
		if n.cb != nil {
			cbs = append(cbs, n.cb)
		}
	}
	h.published = true
	h.publishes++
	payload := h.payload
	critical.Unlock()

	for _, cb := range cbs {
		cb(payload)
	}
	return nil
}

// Copy reads the current payload into buf and clears the node's renewal
// flag. If a publish lands between Poll and Copy the newer value is returned;
// updates coalesce. buf must be exactly the topic's record size.
func (h *Hub) Copy(node *Node, buf []byte) error {
	if h == nil {
		panic("mcn: nil hub")
	}
	if node == nil {
		panic("mcn: nil node")
	}
	if len(buf) != h.size {
		panic("mcn: buffer size mismatch")
	}
	critical.Lock()
	defer critical.Unlock()
	if h.payload == nil {
		return ErrNotAdvertised
	}
	if !h.published {
		return ErrNotReady
	}
	copy(buf, h.payload)
	node.renewal = false
	return nil
}

// Read copies the current payload into buf without touching any renewal
// flag. Echo functions use it to format a hub they hold no subscription on.
func (h *Hub) Read(buf []byte) error {
	if h == nil {
		panic("mcn: nil hub")
	}
	if len(buf) != h.size {
		panic("mcn: buffer size mismatch")
	}
	critical.Lock()
	defer critical.Unlock()
	if h.payload == nil {
		return ErrNotAdvertised
	}
	if !h.published {
		return ErrNotReady
	}
	copy(buf, h.payload)
	return nil
}

// Suspend makes the hub reject publishes until Resume. Subscribers keep
// their last observed state.
func (h *Hub) Suspend() {
	h.suspended.Store(true)
}

// Resume lifts a suspension.
func (h *Hub) Resume() {
	h.suspended.Store(false)
}

// Echo invokes the echo function registered at advertise time, or returns
// ErrNoEcho if the hub was advertised without one.
func (h *Hub) Echo(w io.Writer) error {
	critical.Lock()
	echo := h.echo
	critical.Unlock()
	if echo == nil {
		return ErrNoEcho
	}
	return echo(w, h)
}

// Name returns the topic name.
func (h *Hub) Name() string { return h.name }

// Size returns the topic record size in bytes.
func (h *Hub) Size() int { return h.size }

// Advertised reports whether Advertise has been called.
func (h *Hub) Advertised() bool {
	critical.Lock()
	defer critical.Unlock()
	return h.payload != nil
}

// Published reports whether the topic has ever been published. It latches
// true on the first publish and never clears.
func (h *Hub) Published() bool {
	critical.Lock()
	defer critical.Unlock()
	return h.published
}

// Suspended reports whether publishes are currently rejected.
func (h *Hub) Suspended() bool {
	return h.suspended.Load()
}

// SubscriberCount returns the current subscriber list length.
func (h *Hub) SubscriberCount() int {
	critical.Lock()
	defer critical.Unlock()
	return h.linkNum
}

// HasEcho reports whether an echo function was registered.
func (h *Hub) HasEcho() bool {
	critical.Lock()
	defer critical.Unlock()
	return h.echo != nil
}

// Publishes returns the total number of accepted publishes.
func (h *Hub) Publishes() uint64 {
	critical.Lock()
	defer critical.Unlock()
	return h.publishes
}
