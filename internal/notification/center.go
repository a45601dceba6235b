package notification

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Type names a notification topic
type Type string

const (
	// LogEvent is sent with the *event.LogEvent of every batch about to be dispatched
	LogEvent Type = "LOG_EVENT:log_event"
	Decision Type = "DECISION:type, user_id, attributes, decision_info"
	Track    Type = "TRACK:event_key, user_id, attributes, event_tags, event"
)

// Handler receives the payload of a notification
type Handler func(payload any)

type registration struct {
	id      int
	handler Handler
}

// Center fans notifications out to registered handlers
type Center struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[Type][]registration
	log      *zap.Logger
}

// NewCenter creates a new notification center
func NewCenter(log *zap.Logger) *Center {
	return &Center{
		handlers: make(map[Type][]registration),
		log:      log,
	}
}

// AddHandler registers a handler and returns its id
func (c *Center) AddHandler(notificationType Type, handler Handler) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	c.handlers[notificationType] = append(c.handlers[notificationType], registration{id: c.nextID, handler: handler})
	return c.nextID
}

// RemoveHandler unregisters the handler with the given id
func (c *Center) RemoveHandler(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for notificationType, regs := range c.handlers {
		for i, reg := range regs {
			if reg.id != id {
				continue
			}
			c.handlers[notificationType] = append(regs[:i:i], regs[i+1:]...)
			return true
		}
	}
	return false
}

// ClearHandlers removes every handler of a type
func (c *Center) ClearHandlers(notificationType Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, notificationType)
}

// Send calls the handlers of a type in registration order. A panicking
// handler is logged and skipped.
func (c *Center) Send(notificationType Type, payload any) {
	c.mu.RLock()
	regs := append([]registration(nil), c.handlers[notificationType]...)
	c.mu.RUnlock()

	for _, reg := range regs {
		c.call(notificationType, reg, payload)
	}
}

func (c *Center) call(notificationType Type, reg registration, payload any) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Notification handler failed",
				zap.String("type", string(notificationType)),
				zap.Int("handler_id", reg.id),
				zap.Error(fmt.Errorf("panic: %v", r)))
		}
	}()
	reg.handler(payload)
}
