package auth

import "context"

type workerContextKey struct{}
type tokenContextKey struct{}

// ContextWithWorker attaches the authenticated worker identity to the context.
func ContextWithWorker(ctx context.Context, workerID string) context.Context {
	if workerID == "" {
		return ctx
	}
	return context.WithValue(ctx, workerContextKey{}, workerID)
}

// WorkerFromContext returns the worker identity set by the auth middleware.
func WorkerFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(workerContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// ContextWithToken stores the raw presented token inside the context.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the token if it was previously attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
