package mcn

// The registry is a process-wide singly linked list of every advertised hub,
// in advertising order. The head is a static sentinel whose slot is reused by
// the first advertise; the list never shrinks.

type listEntry struct {
	hub  *Hub
	next *listEntry
}

var registry listEntry

// registerHub appends a hub to the registry. Caller holds the critical
// section.
func registerHub(h *Hub) {
	e := &registry
	for e.next != nil {
		e = e.next
	}
	if e.hub != nil {
		e.next = &listEntry{}
		e = e.next
	}
	e.hub = h
}

// Cursor enumerates advertised hubs in advertising order.
type Cursor struct {
	entry *listEntry
}

// List returns a cursor positioned at the start of the registry.
func List() *Cursor {
	return &Cursor{entry: &registry}
}

// Next returns the hub at the cursor and advances it, or nil at the end of
// the list.
func (c *Cursor) Next() *Hub {
	critical.Lock()
	defer critical.Unlock()
	if c.entry == nil {
		return nil
	}
	h := c.entry.hub
	c.entry = c.entry.next
	return h
}

// FindHub resolves an advertised hub by topic name, or nil if no such topic
// has been advertised.
func FindHub(name string) *Hub {
	for c := List(); ; {
		h := c.Next()
		if h == nil {
			return nil
		}
		if h.Name() == name {
			return h
		}
	}
}
