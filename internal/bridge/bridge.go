// Package bridge is the typed request/response channel between the
// picker's isolated realm and the page realm where the framework tree is
// visible. Every request kind flows through the same envelope shape:
// kind, correlation id, payload. Responses whose id is unknown or
// already answered are dropped, which makes late replies after a
// cancellation harmless.
package bridge

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Kind names a request type on the channel.
type Kind string

const (
	// KindResolve asks the page realm for the component owning a node.
	KindResolve Kind = "resolve"
	// KindResolveStack asks for the full ancestor component stack.
	KindResolveStack Kind = "resolve-stack"
)

// Response is the reply envelope for one request.
type Response struct {
	ID      string
	Kind    Kind
	Payload any
	Err     string
}

// Handler serves one request kind in the page realm.
type Handler func(payload any) (any, error)

// Channel issues correlated requests and routes replies back to the
// caller that issued them.
type Channel interface {
	// Call issues a request and registers reply for its response. The
	// returned id identifies the request for logging.
	Call(kind Kind, payload any, reply func(Response)) string
}

// Local is an in-process Channel. A scheduler hook defers handler
// execution and reply delivery, modeling the asynchronous boundary
// crossing; the default runs inline.
type Local struct {
	mu       sync.Mutex
	handlers map[Kind]Handler
	pending  map[string]func(Response)
	schedule func(func())
}

// NewLocal creates a channel. A nil scheduler runs deliveries inline.
func NewLocal(scheduler func(func())) *Local {
	if scheduler == nil {
		scheduler = func(fn func()) { fn() }
	}
	return &Local{
		handlers: make(map[Kind]Handler),
		pending:  make(map[string]func(Response)),
		schedule: scheduler,
	}
}

// Handle registers the handler for a request kind.
func (l *Local) Handle(kind Kind, h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[kind] = h
}

// Call implements Channel.
func (l *Local) Call(kind Kind, payload any, reply func(Response)) string {
	id := uuid.NewString()

	l.mu.Lock()
	h, ok := l.handlers[kind]
	if reply != nil {
		l.pending[id] = reply
	}
	l.mu.Unlock()

	l.schedule(func() {
		resp := Response{ID: id, Kind: kind}
		if !ok {
			resp.Err = fmt.Sprintf("no handler for kind %q", kind)
		} else {
			result, err := h(payload)
			if err != nil {
				resp.Err = err.Error()
			} else {
				resp.Payload = result
			}
		}
		l.Deliver(resp)
	})
	return id
}

// Deliver routes a response to its waiting caller. Responses with an
// unknown or already-answered id are dropped.
func (l *Local) Deliver(resp Response) {
	l.mu.Lock()
	reply, ok := l.pending[resp.ID]
	if ok {
		delete(l.pending, resp.ID)
	}
	l.mu.Unlock()

	if ok {
		reply(resp)
	}
}

// PendingCount reports the number of unanswered requests.
func (l *Local) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}
