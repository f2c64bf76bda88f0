package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ProfileFromContext returns the acting user's profile when a session is present.
func ProfileFromContext(ctx context.Context) (Profile, bool) {
	sess := SessionFromContext(ctx)
	if sess == nil || sess.Profile.UserID == 0 {
		return Profile{}, false
	}
	return sess.Profile, true
}
