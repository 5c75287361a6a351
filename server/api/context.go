package api

import "context"

type contextKey int

const ctxKeySubject contextKey = 0

// ContextWithSubject records the authenticated username on the context.
func ContextWithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, ctxKeySubject, subject)
}

// Subject returns the authenticated username, or "" if unauthenticated.
func Subject(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeySubject).(string); ok {
		return s
	}
	return ""
}
