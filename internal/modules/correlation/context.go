package correlation

import (
	"context"
	"fmt"
	"net/http"
)

type contextKey struct{}

// slot is the single per-request entry holding the bound id. It lives in
// the request context as a pointer so layers above the interceptor that
// installed it with Scope see the binding once downstream returns.
type slot struct {
	id    ID
	bound bool
}

func slotFrom(ctx context.Context) *slot {
	if ctx == nil {
		return nil
	}

	s, _ := ctx.Value(contextKey{}).(*slot)
	return s
}

// Scope installs an empty slot in ctx unless one is already present.
func Scope(ctx context.Context) context.Context {
	if slotFrom(ctx) != nil {
		return ctx
	}

	return context.WithValue(ctx, contextKey{}, &slot{})
}

// WithID binds id to ctx. An unbound slot installed by Scope is filled in
// place; otherwise a new slot shadows whatever ctx carried.
func WithID(ctx context.Context, id ID) context.Context {
	if s := slotFrom(ctx); s != nil && !s.bound {
		s.id = id
		s.bound = true
		return ctx
	}

	return context.WithValue(ctx, contextKey{}, &slot{id: id, bound: true})
}

func FromContext(ctx context.Context) (ID, bool) {
	s := slotFrom(ctx)
	if s == nil || !s.bound {
		return ID{}, false
	}

	return s.id, true
}

// FromRequest returns the id bound to r by the interceptor. ErrNotBound
// means the handler is reachable without passing through it.
func FromRequest(r *http.Request) (ID, error) {
	id, ok := FromContext(r.Context())
	if !ok {
		return ID{}, fmt.Errorf("%s %s: %w", r.Method, r.URL.Path, ErrNotBound)
	}

	return id, nil
}

func MustFromContext(ctx context.Context) ID {
	id, ok := FromContext(ctx)
	if !ok {
		panic(ErrNotBound)
	}

	return id
}
