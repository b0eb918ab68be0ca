package provider

import "context"

type sessionKey struct{}

// WithSessionID scopes provider calls made with ctx to a workflow session.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionID returns the session attached by WithSessionID, if any.
func SessionID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}

	id, ok := ctx.Value(sessionKey{}).(string)

	return id, ok && id != ""
}
