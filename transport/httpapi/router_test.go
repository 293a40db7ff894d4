package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-permissions/internal/dbtest"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/goliatone/go-permissions/service"
)

var testSecret = []byte("test-secret-with-enough-entropy!!")

type fixture struct {
	handler  http.Handler
	world    dbtest.World
	sysadmin types.ActorRef
	clerk    types.ActorRef
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := dbtest.New(t)
	world := dbtest.Seed(t, db)
	svc, err := service.NewBun(service.BunConfig{
		DB:          db,
		Clock:       &dbtest.Clock{T: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		AdminPageID: world.PageB,
	})
	require.NoError(t, err)

	return fixture{
		handler: NewRouter(Config{
			Service:       svc,
			Authenticator: NewAuthenticator(testSecret, ""),
		}),
		world:    world,
		sysadmin: types.ActorRef{ID: uuid.New(), Type: types.ActorRoleSystemAdmin},
		clerk:    types.ActorRef{ID: world.UserID, Type: types.ActorRoleUser, TenantID: world.TenantID, RoleID: world.RoleID},
	}
}

func signToken(t *testing.T, actor types.ActorRef) string {
	t.Helper()
	claims := Claims{
		ActorType: actor.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	if actor.TenantID != uuid.Nil {
		claims.TenantID = actor.TenantID.String()
	}
	if actor.RoleID != uuid.Nil {
		claims.RoleID = actor.RoleID.String()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

func (f fixture) do(t *testing.T, actor types.ActorRef, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if !actor.IsZero() {
		req.Header.Set("Authorization", "Bearer "+signToken(t, actor))
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, types.ActorRef{}, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthenticationRequired(t *testing.T) {
	f := newFixture(t)
	path := "/api/v1/tenants/" + f.world.TenantID.String() + "/roles"

	rec := f.do(t, types.ActorRef{}, http.MethodGet, path, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString()},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+unsigned)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRolePermissionsAndCheck(t *testing.T) {
	f := newFixture(t)
	tenant := f.world.TenantID.String()
	rolePath := "/api/v1/tenants/" + tenant + "/roles/" + f.world.RoleID.String() + "/permissions"
	edits := `{"edits":[{"page_id":"` + f.world.PageA.String() + `","can_view":true}]}`

	rec := f.do(t, f.clerk, http.MethodPut, rolePath, edits)
	require.Equal(t, http.StatusForbidden, rec.Code)
	denied := decodeError(t, rec)
	require.Equal(t, "not authorized", denied.Error)
	require.Equal(t, types.TextCodePermissionDenied, denied.TextCode)

	rec = f.do(t, f.sysadmin, http.MethodPut, rolePath, edits)
	require.Equal(t, http.StatusOK, rec.Code)
	var result types.PermissionChangeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, 1, result.Upserted)

	checkPath := "/api/v1/tenants/" + tenant + "/users/" + f.world.UserID.String() +
		"/pages/" + f.world.PageA.String() + "/check?action=view"
	rec = f.do(t, f.clerk, http.MethodGet, checkPath, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"allowed":true}`, rec.Body.String())

	flagsPath := "/api/v1/tenants/" + tenant + "/users/" + f.world.UserID.String() +
		"/pages/" + f.world.PageA.String() + "/permissions"
	rec = f.do(t, f.clerk, http.MethodGet, flagsPath, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var flags types.PermissionFlags
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flags))
	require.True(t, flags.CanView)
	require.False(t, flags.CanEdit)
}

func TestValidationErrors(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, f.sysadmin, http.MethodGet, "/api/v1/tenants/nope/roles", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, types.TextCodeValidation, decodeError(t, rec).TextCode)

	checkPath := "/api/v1/tenants/" + f.world.TenantID.String() + "/users/" + f.world.UserID.String() +
		"/pages/" + f.world.PageA.String() + "/check?action=approve"
	rec = f.do(t, f.sysadmin, http.MethodGet, checkPath, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rolePath := "/api/v1/tenants/" + f.world.TenantID.String() + "/roles"
	rec = f.do(t, f.sysadmin, http.MethodPost, rolePath, `{"unknown":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLockAndUnlock(t *testing.T) {
	f := newFixture(t)
	userPath := "/api/v1/tenants/" + f.world.TenantID.String() + "/users/" + f.world.UserID.String()

	rec := f.do(t, f.sysadmin, http.MethodPost, userPath+"/lock", `{"reason":"suspicious activity"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var user types.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	require.Equal(t, types.UserStatusLocked, user.Status)

	rec = f.do(t, f.sysadmin, http.MethodPost, userPath+"/lock", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, types.TextCodeIllegalTransition, decodeError(t, rec).TextCode)

	rec = f.do(t, f.sysadmin, http.MethodPost, userPath+"/unlock", `{"reason":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, f.sysadmin, http.MethodPost, userPath+"/unlock", `{"reason":"verified by phone"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	historyPath := "/api/v1/tenants/" + f.world.TenantID.String() + "/unlock-history"
	rec = f.do(t, f.sysadmin, http.MethodGet, historyPath, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history types.UnlockHistoryPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Records, 1)
	require.Equal(t, "verified by phone", history.Records[0].Reason)
}

func TestAuditExport(t *testing.T) {
	f := newFixture(t)
	userPath := "/api/v1/tenants/" + f.world.TenantID.String() + "/users/" + f.world.UserID.String()
	require.Equal(t, http.StatusOK, f.do(t, f.sysadmin, http.MethodPost, userPath+"/lock", "").Code)

	exportPath := "/api/v1/tenants/" + f.world.TenantID.String() + "/audit-logs/export.csv"
	rec := f.do(t, f.sysadmin, http.MethodGet, exportPath, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	require.True(t, rec.Flushed, "csv export is streamed to the client")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "id,created_at,tenant_id"))
	require.Contains(t, lines[1], types.AuditActionUserLocked)

	rec = f.do(t, f.clerk, http.MethodGet, exportPath, "")
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	xlsxPath := "/api/v1/tenants/" + f.world.TenantID.String() + "/audit-logs/export.xlsx"
	rec = f.do(t, f.sysadmin, http.MethodGet, xlsxPath, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.HasPrefix(rec.Body.String(), "PK"))

	rec = f.do(t, f.sysadmin, http.MethodGet, exportPath+"?date_from=2024-03-02&date_to=2024-03-01", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFlushWriterFlushesEachChunk(t *testing.T) {
	rec := httptest.NewRecorder()
	out := flushWriter{w: rec, rc: http.NewResponseController(rec)}
	n, err := out.Write([]byte("id,created_at\n"))
	require.NoError(t, err)
	require.Equal(t, 14, n)
	require.True(t, rec.Flushed)
	require.Equal(t, "id,created_at\n", rec.Body.String())
}

func TestStatusFor(t *testing.T) {
	require.Equal(t, http.StatusNotFound, statusFor(types.NotFound("role", uuid.Nil)))
	require.Equal(t, http.StatusForbidden, statusFor(types.PermissionDenied()))
	require.Equal(t, http.StatusConflict, statusFor(types.IllegalTransition(types.UserStatusActive, types.UserStatusActive)))
	require.Equal(t, http.StatusBadRequest, statusFor(types.Validation("bad", nil)))
	require.Equal(t, http.StatusInternalServerError, statusFor(types.Persistence(http.ErrHandlerTimeout, "select")))
}

func TestExtractBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := extractBearerToken(req)
	require.Error(t, err)

	req.Header.Set("Authorization", "Basic abc")
	_, err = extractBearerToken(req)
	require.Error(t, err)

	req.Header.Set("Authorization", "bearer  abc ")
	token, err := extractBearerToken(req)
	require.NoError(t, err)
	require.Equal(t, "abc", token)
}
