package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/auth"
	"github.com/campus-events/backend/internal/comments"
	"github.com/campus-events/backend/internal/events"
	"github.com/campus-events/backend/internal/middleware"
	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/internal/participants"
	"github.com/campus-events/backend/internal/rsos"
	"github.com/campus-events/backend/internal/universities"
	"github.com/campus-events/backend/internal/users"
	"github.com/campus-events/backend/pkg/apperrors"
)

type tokenTable map[string]middleware.Identity

func (t tokenTable) Verify(_ context.Context, token string) (middleware.Identity, error) {
	id, ok := t[token]
	if !ok {
		return middleware.Identity{}, apperrors.Unauthorized("invalid token")
	}
	return id, nil
}

type uniStore struct{}

func (uniStore) List(context.Context) ([]models.University, error) {
	return []models.University{{ID: 1, Name: "Acme U"}}, nil
}

func (uniStore) GetByID(_ context.Context, id int64) (*models.University, error) {
	return nil, apperrors.NotFound("university not found")
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	sessions := tokenTable{
		"student": {UserID: 1, Role: models.RoleStudent},
		"admin":   {UserID: 2, Role: models.RoleAdmin},
	}
	return New(Options{Logger: logger, Sessions: sessions, AllowedOrigins: []string{"*"}}, Handlers{
		Auth:         auth.NewHandler(nil, nil, logger),
		Users:        users.NewHandler(nil, 0, logger),
		Universities: universities.NewHandler(uniStore{}),
		RSOs:         rsos.NewHandler(nil, nil, logger),
		Events:       events.NewHandler(nil),
		Comments:     comments.NewHandler(nil, nil, logger),
		Participants: participants.NewHandler(nil, nil),
	})
}

func request(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndRequestID(t *testing.T) {
	w := request(newEngine(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}

func TestPublicRoutesReachHandlers(t *testing.T) {
	r := newEngine()
	assert.Equal(t, http.StatusOK, request(r, http.MethodGet, "/universities", "").Code)
	assert.Equal(t, http.StatusNotFound, request(r, http.MethodGet, "/universities/3", "").Code)
}

func TestRouteGuards(t *testing.T) {
	r := newEngine()
	cases := []struct {
		method, path, token string
		want                int
	}{
		{http.MethodPost, "/events", "", http.StatusUnauthorized},
		{http.MethodPost, "/events", "student", http.StatusForbidden},
		{http.MethodGet, "/events", "bogus", http.StatusUnauthorized},
		{http.MethodGet, "/events/approve", "admin", http.StatusForbidden},
		{http.MethodPatch, "/events/approve", "admin", http.StatusForbidden},
		{http.MethodPut, "/events/1", "student", http.StatusForbidden},
		{http.MethodDelete, "/rsos/1", "student", http.StatusForbidden},
		{http.MethodPost, "/rsos/join", "", http.StatusUnauthorized},
		{http.MethodPost, "/comments", "", http.StatusUnauthorized},
		{http.MethodDelete, "/comments/1", "", http.StatusUnauthorized},
		{http.MethodPost, "/participants", "", http.StatusUnauthorized},
		{http.MethodGet, "/users", "admin", http.StatusForbidden},
		{http.MethodGet, "/users/1", "", http.StatusUnauthorized},
		{http.MethodPost, "/auth/logout", "", http.StatusUnauthorized},
		{http.MethodGet, "/auth/me", "bogus", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		w := request(r, tc.method, tc.path, tc.token)
		assert.Equal(t, tc.want, w.Code, "%s %s as %q", tc.method, tc.path, tc.token)
	}
}
