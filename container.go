package session

import (
	"sync"
)

// Listener is called after every dispatch with the previous and next state.
type Listener func(prev, next *AuthState)

// Container owns the auth state of one client. Dispatches are applied one
// at a time. Listeners run outside the state lock, in dispatch order, and
// must not dispatch synchronously.
type Container struct {
	mu        sync.Mutex
	state     *AuthState
	listeners map[int]Listener
	nextID    int
	notify    sync.Mutex
}

var _ Dispatcher = &Container{}
var _ StateReader = &Container{}

// NewContainer returns a container seeded with initial, usually the result
// of Hydrate.
func NewContainer(initial *AuthState) *Container {
	if initial == nil {
		initial = LoggedOutState()
	}
	return &Container{
		state:     initial,
		listeners: make(map[int]Listener),
	}
}

// State returns the current state. Callers must treat it as read only.
func (c *Container) State() *AuthState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Dispatch reduces action into the current state and returns the result.
func (c *Container) Dispatch(action Action) *AuthState {
	c.notify.Lock()
	defer c.notify.Unlock()

	c.mu.Lock()
	prev := c.state
	next := Reduce(prev, action)
	c.state = next
	listeners := make([]Listener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	if next != prev {
		for _, l := range listeners {
			l(prev, next)
		}
	}
	return next
}

// Subscribe registers fn and returns a function that removes it.
func (c *Container) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}
