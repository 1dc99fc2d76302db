package users

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-events/backend/internal/middleware"
	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/pkg/apperrors"
	"github.com/campus-events/backend/pkg/utils"
)

type fakeStore struct {
	users map[int64]*models.User
}

func newFakeStore(list ...models.User) *fakeStore {
	s := &fakeStore{users: map[int64]*models.User{}}
	for i := range list {
		u := list[i]
		s.users[u.ID] = &u
	}
	return s
}

func (s *fakeStore) List(context.Context) ([]models.User, error) {
	out := []models.User{}
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) GetByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	return u, nil
}

func (s *fakeStore) Update(_ context.Context, id int64, p UpdateParams) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user not found")
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.PasswordHash != nil {
		u.Password = *p.PasswordHash
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.UniversityID != nil {
		u.UniversityID = p.UniversityID
	}
	return u, nil
}

func (s *fakeStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.users[id]; !ok {
		return apperrors.NotFound("user not found")
	}
	delete(s.users, id)
	return nil
}

func newRouter(store Store, identity *middleware.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, bcrypt.MinCost, zap.NewNop())
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if identity != nil {
			c.Set(middleware.ContextIdentity, *identity)
		}
	})
	r.GET("/users", h.List)
	r.GET("/users/:id", h.Get)
	r.PUT("/users/:id", h.Update)
	r.DELETE("/users/:id", h.Delete)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sampleUsers() []models.User {
	uni := int64(5)
	return []models.User{
		{ID: 1, Email: "ana@uni.edu", Password: "hash", Role: models.RoleStudent, UniversityID: &uni, RSOs: []int64{2, 4}},
		{ID: 2, Email: "root@uni.edu", Password: "hash", Role: models.RoleSuperAdmin, UniversityID: &uni},
	}
}

func TestGetSelf(t *testing.T) {
	r := newRouter(newFakeStore(sampleUsers()...), &middleware.Identity{UserID: 1, Role: models.RoleStudent})

	w := do(r, http.MethodGet, "/users/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1,"email":"ana@uni.edu","role":"student","university":5,"rso":[2,4]}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "hash")
}

func TestGetOtherUserForbidden(t *testing.T) {
	r := newRouter(newFakeStore(sampleUsers()...), &middleware.Identity{UserID: 1, Role: models.RoleStudent})

	w := do(r, http.MethodGet, "/users/2", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSuperAdminGetsMissingUser(t *testing.T) {
	r := newRouter(newFakeStore(sampleUsers()...), &middleware.Identity{UserID: 2, Role: models.RoleSuperAdmin})

	w := do(r, http.MethodGet, "/users/99", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"user not found"}`, w.Body.String())

	w = do(r, http.MethodGet, "/users/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateRehashesPassword(t *testing.T) {
	store := newFakeStore(sampleUsers()...)
	r := newRouter(store, &middleware.Identity{UserID: 1, Role: models.RoleStudent})

	w := do(r, http.MethodPut, "/users/1", `{"password":"new-password"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, utils.CheckPassword("new-password", store.users[1].Password))

	w = do(r, http.MethodPut, "/users/1", `{"password":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOnlySuperAdminChangesRole(t *testing.T) {
	store := newFakeStore(sampleUsers()...)

	r := newRouter(store, &middleware.Identity{UserID: 1, Role: models.RoleStudent})
	w := do(r, http.MethodPut, "/users/1", `{"role":"super-admin"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, models.RoleStudent, store.users[1].Role)

	r = newRouter(store, &middleware.Identity{UserID: 2, Role: models.RoleSuperAdmin})
	w = do(r, http.MethodPut, "/users/1", `{"role":"admin"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleAdmin, store.users[1].Role)

	w = do(r, http.MethodPut, "/users/1", `{"role":"dean"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteTwice(t *testing.T) {
	r := newRouter(newFakeStore(sampleUsers()...), &middleware.Identity{UserID: 2, Role: models.RoleSuperAdmin})

	w := do(r, http.MethodDelete, "/users/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"user deleted"}`, w.Body.String())

	w = do(r, http.MethodDelete, "/users/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListHidesPasswords(t *testing.T) {
	r := newRouter(newFakeStore(sampleUsers()...), &middleware.Identity{UserID: 2, Role: models.RoleSuperAdmin})

	w := do(r, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	assert.Contains(t, w.Body.String(), `"rso":[]`)
}
