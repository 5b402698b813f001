package mcn

import "time"

// PublishCallback is invoked with the hub payload after every publish. It
// runs in the publisher's goroutine and must not block. The payload slice is
// the hub's own buffer; treat it as read-only and copy out anything kept
// beyond the callback's return.
type PublishCallback func(payload []byte)

// Node is one subscription on a hub. It is created by Subscribe and owned by
// the hub's subscriber list until Unsubscribe returns.
type Node struct {
	renewal bool
	event   *Event
	cb      PublishCallback
	next    *Node
}

// Poll reports whether the topic was published since the last Copy or Clear
// on this node. Non-blocking.
func (n *Node) Poll() bool {
	if n == nil {
		panic("mcn: nil node")
	}
	critical.Lock()
	renewal := n.renewal
	critical.Unlock()
	return renewal
}

// PollSync blocks on the node's event until a publish signals it or the
// timeout elapses. The node must have been subscribed with an event. A
// negative timeout waits forever; zero polls the pending state. PollSync does
// not clear the renewal flag; follow up with Copy.
func (n *Node) PollSync(timeout time.Duration) bool {
	if n == nil {
		panic("mcn: nil node")
	}
	if n.event == nil {
		panic("mcn: PollSync on node subscribed without event")
	}
	return n.event.WaitTimeout(timeout)
}

// Clear drops the renewal flag without copying the payload out.
func (n *Node) Clear() {
	if n == nil {
		panic("mcn: nil node")
	}
	critical.Lock()
	n.renewal = false
	critical.Unlock()
}
