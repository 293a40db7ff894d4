package redisnotify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-permissions/pkg/types"
)

type published struct {
	channel string
	payload []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "publish", channel, message)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{channel: channel, payload: message.([]byte)})
	cmd.SetVal(1)
	return cmd
}

type countingLogger struct {
	types.NopLogger
	errors int
}

func (l *countingLogger) Error(string, error, ...any) { l.errors++ }

func TestNotifierPublishesPermissionChange(t *testing.T) {
	pub := &fakePublisher{}
	var forwarded int
	n := New(Config{
		Client: pub,
		Prefix: "budget:",
		Next: types.Hooks{
			AfterPermissionChange: func(context.Context, types.PermissionEvent) { forwarded++ },
		},
	})

	tenant := uuid.New()
	role := uuid.New()
	page := uuid.New()
	n.Hooks().AfterPermissionChange(context.Background(), types.PermissionEvent{
		TenantID:   tenant,
		RoleID:     role,
		PageIDs:    []uuid.UUID{page},
		Action:     types.AuditActionRolePermissionsUpdated,
		OccurredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})

	require.Equal(t, 1, forwarded)
	require.Len(t, pub.msgs, 1)
	require.Equal(t, "budget:"+tenant.String()+":events", pub.msgs[0].channel)

	var msg Message
	require.NoError(t, json.Unmarshal(pub.msgs[0].payload, &msg))
	require.Equal(t, KindPermission, msg.Kind)
	require.Equal(t, role, msg.RoleID)
	require.Equal(t, []uuid.UUID{page}, msg.PageIDs)
}

func TestNotifierLockoutAndRole(t *testing.T) {
	pub := &fakePublisher{}
	n := New(Config{Client: pub})
	tenant := uuid.New()

	hooks := n.Hooks()
	hooks.AfterLockoutChange(context.Background(), types.LockoutEvent{
		TenantID: tenant,
		UserID:   uuid.New(),
		ToStatus: types.UserStatusLocked,
	})
	hooks.AfterRoleChange(context.Background(), types.RoleEvent{
		TenantID: tenant,
		RoleID:   uuid.New(),
		Action:   "role.deleted",
	})

	require.Len(t, pub.msgs, 2)
	require.Equal(t, DefaultPrefix+":"+tenant.String()+":events", pub.msgs[0].channel)

	var lock Message
	require.NoError(t, json.Unmarshal(pub.msgs[0].payload, &lock))
	require.Equal(t, KindLockout, lock.Kind)
	require.Equal(t, string(types.UserStatusLocked), lock.Status)
}

func TestNotifierSwallowsPublishErrors(t *testing.T) {
	logger := &countingLogger{}
	n := New(Config{Client: &fakePublisher{err: errors.New("connection refused")}, Logger: logger})

	require.NotPanics(t, func() {
		n.Hooks().AfterAudit(context.Background(), types.AuditEntry{TenantID: uuid.New(), Action: "user.locked"})
	})
	require.Equal(t, 1, logger.errors)
}

func TestNotifierSkipsWithoutTenantOrClient(t *testing.T) {
	pub := &fakePublisher{}
	New(Config{Client: pub}).Hooks().AfterAudit(context.Background(), types.AuditEntry{Action: "x"})
	require.Empty(t, pub.msgs)

	require.NotPanics(t, func() {
		New(Config{}).Hooks().AfterAudit(context.Background(), types.AuditEntry{TenantID: uuid.New()})
	})
}
