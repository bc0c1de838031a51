package entitystore

import (
	"sync"

	"github.com/google/uuid"
)

// Lifecycle events. Every create/update/delete in this package is wrapped by
// a synchronous event; handlers run in registration order on the calling
// goroutine and may veto the triggering operation.

// Action identifies the lifecycle phase an event belongs to.
type Action string

// Lifecycle action constants.
const (
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionEnable   Action = "enable"
	ActionDisable  Action = "disable"
	ActionAnnotate Action = "annotate"
)

// Well-known subject type names. Entity events use the entity type instead;
// relationship events additionally fire under the relationship type name.
const (
	SubjectRelationship = "relationship"
	SubjectAnnotation   = "annotation"
	SubjectMetadata     = "metadata"
)

// Result is the tri-state outcome of a single handler.
type Result int

// Handler results. Abstain is the zero value: no opinion, continue.
const (
	Abstain Result = iota
	Allow
	Deny
)

// Event carries the action, the subject type name (an entity type,
// "relationship", "annotation", or a relationship type name for the legacy
// type-scoped events) and the object the operation concerns.
type Event struct {
	Action Action
	Type   string
	Object interface{}
}

// Handler observes an event and may veto the operation by returning Deny.
type Handler func(Event) Result

type eventKey struct {
	action Action
	typ    string
}

type registration struct {
	id uuid.UUID
	fn Handler
}

// Dispatcher is the publish/subscribe table for lifecycle events, keyed by
// (action, subject type). It replaces any ambient registry: components that
// fire or observe events receive a Dispatcher explicitly.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[eventKey][]registration
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[eventKey][]registration)}
}

// Register adds a handler for (action, typ) and returns a token for
// Unregister. Handlers fire in registration order.
func (d *Dispatcher) Register(action Action, typ string, fn Handler) uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := uuid.New()
	key := eventKey{action: action, typ: typ}
	d.handlers[key] = append(d.handlers[key], registration{id: id, fn: fn})
	return id
}

// Unregister removes a previously registered handler. It reports whether a
// handler with that token existed.
func (d *Dispatcher) Unregister(id uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, regs := range d.handlers {
		for i, reg := range regs {
			if reg.id == id {
				d.handlers[key] = append(regs[:i:i], regs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Trigger fires the handlers registered for (action, typ) in order. Any Deny
// short-circuits the remaining handlers and yields false; otherwise the
// operation is allowed.
func (d *Dispatcher) Trigger(action Action, typ string, object interface{}) bool {
	d.mu.RLock()
	regs := d.handlers[eventKey{action: action, typ: typ}]
	d.mu.RUnlock()

	ev := Event{Action: action, Type: typ, Object: object}
	for _, reg := range regs {
		if reg.fn(ev) == Deny {
			return false
		}
	}
	return true
}
