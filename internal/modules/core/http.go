package core

import (
	"net/http"
)

// Filter intercepts a request before it reaches next. Implementations call
// next at most once; not calling it short-circuits the request.
type Filter interface {
	Intercept(w http.ResponseWriter, r *http.Request, next http.Handler)
}

type FilterFunc func(w http.ResponseWriter, r *http.Request, next http.Handler)

func (f FilterFunc) Intercept(w http.ResponseWriter, r *http.Request, next http.Handler) {
	f(w, r, next)
}

// Middleware adapts a Filter to the shape accepted by chi's Use.
func Middleware(f Filter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f.Intercept(w, r, next)
		})
	}
}
