package userbase

import (
	"context"
)

var sessionCtxKey = &contextKey{"session"}
var actorCtxKey = &contextKey{"actor"}

type contextKey struct {
	name string
}

// WithSessionContext sets the Session in the given context
func WithSessionContext(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, session)
}

// SessionFromContext finds the session from the context.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(*Session)
	return raw, ok && raw != nil
}

// WithActor sets who acts in the given context. Activity recorded without
// an explicit actor uses it.
func WithActor(ctx context.Context, actor ActorRef) context.Context {
	return context.WithValue(ctx, actorCtxKey, actor)
}

// ActorFromContext returns the actor stored by WithActor, falling back to
// the impersonating administrator or the owner of a session in ctx.
func ActorFromContext(ctx context.Context) (ActorRef, bool) {
	if actor, ok := ctx.Value(actorCtxKey).(ActorRef); ok && actor.ID != "" {
		return actor, true
	}
	if session, ok := SessionFromContext(ctx); ok {
		if session.IsImpersonation() {
			return ActorRef{ID: session.ImpersonatorID, Type: ActorTypeAdmin}, true
		}
		return ActorRef{ID: session.IdentityID, Type: ActorTypeUser}, true
	}
	return ActorRef{}, false
}
