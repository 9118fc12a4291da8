// Package requestctx carries per-request values through context.
package requestctx

import "context"

type subjectKey struct{}

// WithSubject returns a context carrying the authenticated identity id.
func WithSubject(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, subjectKey{}, id)
}

// Subject returns the authenticated identity id, if any.
func Subject(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(subjectKey{}).(string)
	return id, ok && id != ""
}
