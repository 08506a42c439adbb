// Package event is an in-process publish/subscribe dispatcher. Services fire
// domain events after their transaction commits; listeners registered at
// boot react to them (websocket pushes, queue jobs).
package event

import (
	"sync"

	"github.com/shashiranjanraj/billbook/pkg/logger"
)

// Handler receives an event payload.
type Handler func(payload interface{})

var (
	mu       sync.RWMutex
	handlers = map[string][]Handler{}
)

// Listen registers a handler for the given event name.
func Listen(event string, handler Handler) {
	mu.Lock()
	defer mu.Unlock()
	handlers[event] = append(handlers[event], handler)
}

func listeners(event string) []Handler {
	mu.RLock()
	defer mu.RUnlock()
	hs := make([]Handler, len(handlers[event]))
	copy(hs, handlers[event])
	return hs
}

// Fire dispatches an event synchronously to every listener. A panicking
// listener is logged and does not stop the others.
func Fire(event string, payload interface{}) {
	for _, h := range listeners(event) {
		call(event, h, payload)
	}
}

// FireAsync dispatches the event to all listeners concurrently and returns
// at once.
func FireAsync(event string, payload interface{}) {
	for _, h := range listeners(event) {
		go call(event, h, payload)
	}
}

func call(event string, h Handler, payload interface{}) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event listener panicked", "event", event, "panic", r)
		}
	}()
	h(payload)
}

// Has reports whether anything listens for event.
func Has(event string) bool {
	mu.RLock()
	defer mu.RUnlock()
	return len(handlers[event]) > 0
}

// Flush removes all listeners.
func Flush() {
	mu.Lock()
	defer mu.Unlock()
	handlers = map[string][]Handler{}
}
