package middleware

import "github.com/vkarpenko/slotbot/pkg/ports"

// Middleware allows wrapping a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// Wrap applies middlewares to a store, first in the list outermost.
func Wrap(store ports.SessionStore, middlewares ...Middleware) ports.SessionStore {
	for i := len(middlewares) - 1; i >= 0; i-- {
		store = middlewares[i](store)
	}
	return store
}
