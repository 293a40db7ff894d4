package httpapi

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/goliatone/go-permissions/pkg/authctx"
	"github.com/goliatone/go-permissions/pkg/types"
)

type requestMeta struct {
	actor     types.ActorRef
	ipAddress string
	userAgent string
}

func metaFrom(r *http.Request) requestMeta {
	actor, _, _ := authctx.ResolveActor(r.Context())
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return requestMeta{actor: actor, ipAddress: ip, userAgent: r.UserAgent()}
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, types.Validation("invalid "+name, map[string]any{name: raw})
	}
	return id, nil
}

// pathUUIDs parses each named URL parameter in order.
func pathUUIDs(r *http.Request, names ...string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(names))
	for _, name := range names {
		id, err := pathUUID(r, name)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func queryUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, types.Validation("invalid "+name, map[string]any{name: raw})
	}
	return id, nil
}

func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, types.Validation("invalid "+name, map[string]any{name: raw})
}

func pagination(r *http.Request) (types.Pagination, error) {
	page, err := queryInt(r, "page")
	if err != nil {
		return types.Pagination{}, err
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return types.Pagination{}, err
	}
	return types.PageRequest(page, limit), nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, types.Validation("invalid "+name, map[string]any{name: raw})
	}
	return v, nil
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return types.Validation("invalid request body", map[string]any{"error": err.Error()})
	}
	return nil
}

func auditFilter(r *http.Request, tenantID uuid.UUID, actor types.ActorRef) (types.AuditFilter, error) {
	filter := types.AuditFilter{
		Actor:        actor,
		TenantID:     tenantID,
		Action:       r.URL.Query().Get("action"),
		ResourceType: r.URL.Query().Get("resource_type"),
		ResourceID:   r.URL.Query().Get("resource_id"),
	}
	var err error
	if filter.ActorID, err = queryUUID(r, "actor_id"); err != nil {
		return filter, err
	}
	if filter.DateFrom, err = queryTime(r, "date_from"); err != nil {
		return filter, err
	}
	if filter.DateTo, err = queryTime(r, "date_to"); err != nil {
		return filter, err
	}
	if filter.Pagination, err = pagination(r); err != nil {
		return filter, err
	}
	return filter, nil
}
