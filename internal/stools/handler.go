package stools

import (
	"net/http"
)

// AdaptHandler chains middlewares around an http.HandlerFunc. Middlewares
// run in the order provided.
func AdaptHandler(h http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
