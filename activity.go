package userbase

import (
	"context"
	"sync"
	"time"
)

// ActivityKind enumerates the recorded activity categories.
type ActivityKind string

const (
	ActivityLoginPassword      ActivityKind = "login_upass"
	ActivityRegisterPassword   ActivityKind = "register_upass"
	ActivityAddedPassword      ActivityKind = "added_upass"
	ActivityUpdatePassword     ActivityKind = "updatepass"
	ActivityResetPassword      ActivityKind = "resetpass"
	ActivityUpdateUserInfo     ActivityKind = "update_user_info"
	ActivityImpersonation      ActivityKind = "impersonation.success"
	ActivityImpersonationDeny  ActivityKind = "impersonation.denied"
	ActivityImpersonationStop  ActivityKind = "impersonation.stop"
	ActivityInvitationAccepted ActivityKind = "invitation.accepted"
)

// ActorRef identifies who triggered an activity.
type ActorRef struct {
	ID   string
	Type string
}

const (
	ActorTypeUser   = "user"
	ActorTypeAdmin  = "admin"
	ActorTypeSystem = "system"
)

// ActivityEvent captures audit friendly information about an action.
type ActivityEvent struct {
	Kind       ActivityKind
	IdentityID string
	Actor      ActorRef
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// DirectorySink records activity through an IdentityDirectory.
func DirectorySink(directory IdentityDirectory) ActivitySink {
	if directory == nil {
		return noopActivitySink{}
	}
	return ActivitySinkFunc(directory.RecordActivity)
}

// recordActivity stamps the event and hands it to sink. Failures are logged
// and returned so callers can surface them as warnings.
func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, now func() time.Time, event ActivityEvent) error {
	if sink == nil {
		return nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = now().UTC()
	}
	if event.Actor.ID == "" {
		if actor, ok := ActorFromContext(ctx); ok {
			event.Actor = actor
		} else {
			event.Actor = ActorRef{ID: event.IdentityID, Type: ActorTypeUser}
		}
	}
	if queue, ok := ctx.Value(activityQueueKey{}).(*activityQueue); ok {
		queue.push(sink, logger, event)
		return nil
	}
	return deliverActivity(ctx, sink, logger, event)
}

func deliverActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) error {
	if err := sink.Record(ctx, event); err != nil {
		if logger != nil {
			logger.Warn("activity sink error", "kind", event.Kind, "identity", event.IdentityID, "error", err)
		}
		return err
	}
	return nil
}

type activityQueueKey struct{}

type queuedActivity struct {
	sink   ActivitySink
	logger Logger
	event  ActivityEvent
}

// activityQueue holds activity recorded inside a transaction until the
// transaction commits. A failed activity write must not abort the
// transaction it would otherwise share.
type activityQueue struct {
	mu      sync.Mutex
	pending []queuedActivity
}

// deferActivity returns a context in which recorded activity is queued
// instead of written.
func deferActivity(ctx context.Context) (context.Context, *activityQueue) {
	queue := &activityQueue{}
	return context.WithValue(ctx, activityQueueKey{}, queue), queue
}

func (q *activityQueue) push(sink ActivitySink, logger Logger, event ActivityEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, queuedActivity{sink: sink, logger: logger, event: event})
}

// discard drops the queued activity, used when the transaction rolled back.
func (q *activityQueue) discard() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = nil
}

// flush writes the queued activity with ctx and returns the sink errors.
func (q *activityQueue) flush(ctx context.Context) []error {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	var errs []error
	for _, item := range pending {
		if err := deliverActivity(ctx, item.sink, item.logger, item.event); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// RecordActivity is the exported form of recordActivity for scheme modules
// living outside this package.
func RecordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) error {
	return recordActivity(ctx, sink, logger, time.Now, event)
}
