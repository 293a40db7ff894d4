package command

import (
	"context"
	"time"

	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/scope"
	"github.com/google/uuid"
)

func safeClock(clock types.Clock) types.Clock {
	if clock != nil {
		return clock
	}
	return types.SystemClock{}
}

func safeLogger(logger types.Logger) types.Logger {
	if logger != nil {
		return logger
	}
	return types.NopLogger{}
}

func safeScopeGuard(g scope.Guard) scope.Guard {
	return scope.Ensure(g)
}

func now(clock types.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now()
}

func requireActor(actor types.ActorRef) error {
	if actor.IsZero() {
		return ErrActorRequired
	}
	return nil
}

// requireGlobalAdmin guards catalog administration, which spans tenants.
func requireGlobalAdmin(actor types.ActorRef) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if actor.IsSystemAdmin() || actor.IsSystem() {
		return nil
	}
	return types.PermissionDenied()
}

// recordAudit appends an entry after a single-row write. Failures are logged;
// the write already committed.
func recordAudit(ctx context.Context, sink types.AuditSink, logger types.Logger, entry types.AuditEntry) {
	if sink == nil {
		return
	}
	if _, err := sink.Record(ctx, entry); err != nil {
		logger.Error("audit record failed", err, "action", entry.Action, "tenant_id", entry.TenantID)
	}
}

func idString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}
