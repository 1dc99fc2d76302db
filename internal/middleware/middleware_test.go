package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/pkg/apperrors"
)

type stubVerifier map[string]Identity

func (s stubVerifier) Verify(_ context.Context, token string) (Identity, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return Identity{}, errors.New("invalid token")
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok, "user_id": id.UserID})
	})
	r.GET("/", handlers...)
	return r
}

func doGet(r http.Handler, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	v := stubVerifier{"good": {UserID: 7, Role: models.RoleStudent}}
	r := newEngine(RequireAuth(v))

	w := doGet(r, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doGet(r, http.Header{"Authorization": {"Token good"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doGet(r, http.Header{"Authorization": {"Bearer bad"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"invalid or expired token"}`, w.Body.String())

	w = doGet(r, http.Header{"Authorization": {"Bearer good"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated":true,"user_id":7}`, w.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	v := stubVerifier{"good": {UserID: 3, Role: models.RoleAdmin}}
	r := newEngine(OptionalAuth(v))

	w := doGet(r, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated":false,"user_id":0}`, w.Body.String())

	w = doGet(r, http.Header{"Authorization": {"Bearer good"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"authenticated":true,"user_id":3}`, w.Body.String())

	w = doGet(r, http.Header{"Authorization": {"Bearer revoked"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	v := stubVerifier{
		"student": {UserID: 1, Role: models.RoleStudent},
		"super":   {UserID: 2, Role: models.RoleSuperAdmin},
	}
	r := newEngine(RequireAuth(v), RequireRole(models.RoleAdmin, models.RoleSuperAdmin))

	w := doGet(r, http.Header{"Authorization": {"Bearer student"}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doGet(r, http.Header{"Authorization": {"Bearer super"}})
	assert.Equal(t, http.StatusOK, w.Code)

	bare := newEngine(RequireRole(models.RoleAdmin))
	w = doGet(bare, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())

	w := doGet(r, nil)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	w = doGet(r, http.Header{HeaderRequestID: {"abc-123"}})
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := doGet(r, http.Header{"Origin": {"http://localhost:3000"}})
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = doGet(r, http.Header{"Origin": {"http://evil.example"}})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLoggerRecordsErrors(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestID(), Logger(zap.New(core)))
	r.GET("/", func(c *gin.Context) {
		_ = c.Error(errors.New("db down"))
		c.Status(http.StatusInternalServerError)
	})

	doGet(r, http.Header{HeaderRequestID: {"req-1"}})

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Contains(t, fields["error"], "db down")
	assert.EqualValues(t, http.StatusInternalServerError, fields["status"])
}

func TestResolveSubject(t *testing.T) {
	run := func(identity *Identity, userID int64) (int64, error) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		if identity != nil {
			c.Set(ContextIdentity, *identity)
		}
		return ResolveSubject(c, userID)
	}

	_, err := run(nil, 1)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	id, err := run(&Identity{UserID: 4, Role: models.RoleStudent}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)

	_, err = run(&Identity{UserID: 4, Role: models.RoleAdmin}, 9)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	id, err = run(&Identity{UserID: 1, Role: models.RoleSuperAdmin}, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
}
