package shared

import "context"

type ctxKey int

const sessionKey ctxKey = iota

// ContextWithSession attaches the request session. A nil session leaves the
// context untouched so lookups keep returning nil.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	if sess == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, sess)
}

// SessionFromContext returns the request session, nil when none was attached.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionKey).(*Session)
	return sess
}
