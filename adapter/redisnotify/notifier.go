// Package redisnotify publishes committed permission, role, lockout and audit
// changes to Redis pub/sub so other processes can drop cached decisions.
package redisnotify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-permissions/pkg/types"
)

// Event kinds carried in Message.Kind.
const (
	KindPermission = "permission"
	KindRole       = "role"
	KindLockout    = "lockout"
	KindAudit      = "audit"
)

// DefaultPrefix is used when Config.Prefix is empty.
const DefaultPrefix = "permissions"

// Publisher is the subset of *redis.Client the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Config wires a Notifier.
type Config struct {
	Client  Publisher
	Prefix  string
	Timeout time.Duration
	Logger  types.Logger
	// Next hooks run after publishing.
	Next types.Hooks
}

// Message is the JSON payload published for every change.
type Message struct {
	Kind       string      `json:"kind"`
	Action     string      `json:"action"`
	TenantID   uuid.UUID   `json:"tenant_id"`
	RoleID     uuid.UUID   `json:"role_id,omitempty"`
	UserID     uuid.UUID   `json:"user_id,omitempty"`
	PageIDs    []uuid.UUID `json:"page_ids,omitempty"`
	ActorID    uuid.UUID   `json:"actor_id,omitempty"`
	Status     string      `json:"status,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Notifier turns hook callbacks into pub/sub messages.
type Notifier struct {
	client  Publisher
	prefix  string
	timeout time.Duration
	logger  types.Logger
	next    types.Hooks
}

// New returns a notifier. A nil client yields a notifier that only forwards
// to Next.
func New(cfg Config) *Notifier {
	prefix := strings.TrimSuffix(strings.TrimSpace(cfg.Prefix), ":")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Notifier{
		client:  cfg.Client,
		prefix:  prefix,
		timeout: timeout,
		logger:  logger,
		next:    cfg.Next,
	}
}

// Channel returns the channel used for a tenant.
func (n *Notifier) Channel(tenantID uuid.UUID) string {
	return n.prefix + ":" + tenantID.String() + ":events"
}

// Hooks returns the callbacks to install on the service.
func (n *Notifier) Hooks() types.Hooks {
	return types.Hooks{
		AfterPermissionChange: func(ctx context.Context, event types.PermissionEvent) {
			n.publish(ctx, Message{
				Kind:       KindPermission,
				Action:     event.Action,
				TenantID:   event.TenantID,
				RoleID:     event.RoleID,
				UserID:     event.UserID,
				PageIDs:    event.PageIDs,
				ActorID:    event.ActorID,
				OccurredAt: event.OccurredAt,
			})
			if n.next.AfterPermissionChange != nil {
				n.next.AfterPermissionChange(ctx, event)
			}
		},
		AfterRoleChange: func(ctx context.Context, event types.RoleEvent) {
			n.publish(ctx, Message{
				Kind:       KindRole,
				Action:     event.Action,
				TenantID:   event.TenantID,
				RoleID:     event.RoleID,
				ActorID:    event.ActorID,
				OccurredAt: event.OccurredAt,
			})
			if n.next.AfterRoleChange != nil {
				n.next.AfterRoleChange(ctx, event)
			}
		},
		AfterLockoutChange: func(ctx context.Context, event types.LockoutEvent) {
			n.publish(ctx, Message{
				Kind:       KindLockout,
				Action:     "user." + string(event.ToStatus),
				TenantID:   event.TenantID,
				UserID:     event.UserID,
				ActorID:    event.ActorID,
				Status:     string(event.ToStatus),
				OccurredAt: event.OccurredAt,
			})
			if n.next.AfterLockoutChange != nil {
				n.next.AfterLockoutChange(ctx, event)
			}
		},
		AfterAudit: func(ctx context.Context, entry types.AuditEntry) {
			n.publish(ctx, Message{
				Kind:       KindAudit,
				Action:     entry.Action,
				TenantID:   entry.TenantID,
				ActorID:    entry.ActorID,
				OccurredAt: entry.CreatedAt,
			})
			if n.next.AfterAudit != nil {
				n.next.AfterAudit(ctx, entry)
			}
		},
	}
}

// publish never fails the caller; the change is already committed.
func (n *Notifier) publish(ctx context.Context, msg Message) {
	if n.client == nil || msg.TenantID == uuid.Nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		n.logger.Error("redisnotify: encode message", err, "kind", msg.Kind)
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	channel := n.Channel(msg.TenantID)
	if err := n.client.Publish(ctx, channel, payload).Err(); err != nil {
		n.logger.Error("redisnotify: publish failed", err, "channel", channel, "kind", msg.Kind)
		return
	}
	n.logger.Debug("redisnotify: published", "channel", channel, "kind", msg.Kind, "action", msg.Action)
}
