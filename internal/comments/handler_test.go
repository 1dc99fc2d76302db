package comments

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-events/backend/internal/middleware"
	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/pkg/apperrors"
)

type memStore struct {
	comments map[int64]*models.Comment
	nextID   int64
	// rsoEvents maps an RSO event to the users who may see it. Other
	// events are public.
	rsoEvents map[int64][]int64
}

func newMemStore() *memStore {
	return &memStore{comments: map[int64]*models.Comment{}, nextID: 1}
}

func (m *memStore) ListByEvent(_ context.Context, eventID int64) ([]models.Comment, error) {
	out := []models.Comment{}
	for id := int64(1); id < m.nextID; id++ {
		if c, ok := m.comments[id]; ok && c.EventID == eventID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*models.Comment, error) {
	c, ok := m.comments[id]
	if !ok {
		return nil, apperrors.NotFound("comment not found")
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) Create(_ context.Context, p CreateParams) (*models.Comment, error) {
	c := &models.Comment{
		ID: m.nextID, UserID: p.UserID, EventID: p.EventID, Rating: p.Rating,
		Comment: p.Comment, Timestamp: p.Timestamp, Email: "user@uni.edu",
	}
	m.comments[c.ID] = c
	m.nextID++
	cp := *c
	return &cp, nil
}

func (m *memStore) Update(ctx context.Context, id int64, text string) (*models.Comment, error) {
	c, ok := m.comments[id]
	if !ok {
		return nil, apperrors.NotFound("comment not found")
	}
	c.Comment = text
	return m.GetByID(ctx, id)
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	if _, ok := m.comments[id]; !ok {
		return apperrors.NotFound("comment not found")
	}
	delete(m.comments, id)
	return nil
}

func (m *memStore) IDsByUser(_ context.Context, userID int64) ([]int64, error) {
	ids := []int64{}
	for id := int64(1); id < m.nextID; id++ {
		if c, ok := m.comments[id]; ok && c.UserID == userID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memStore) Summary(_ context.Context, eventID int64) (*models.RatingSummary, error) {
	s := &models.RatingSummary{EventID: eventID}
	total := 0
	for _, c := range m.comments {
		if c.EventID == eventID {
			s.Count++
			total += c.Rating
		}
	}
	if s.Count > 0 {
		s.Average = float64(total) / float64(s.Count)
	}
	return s, nil
}

func (m *memStore) Visible(_ context.Context, userID, eventID int64) (*models.Event, error) {
	if members, ok := m.rsoEvents[eventID]; ok && !slices.Contains(members, userID) {
		return nil, apperrors.NotFound("event not found")
	}
	return &models.Event{ID: eventID}, nil
}

func newRouter(store *memStore, identity *middleware.Identity) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, store, zap.NewNop())
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if identity != nil {
			c.Set(middleware.ContextIdentity, *identity)
		}
	})
	r.GET("/comments", h.List)
	r.POST("/comments", h.Create)
	r.PUT("/comments", h.Update)
	r.DELETE("/comments", h.Delete)
	r.GET("/comments/user", h.ByUser)
	r.PUT("/comments/:id", h.Update)
	r.DELETE("/comments/:id", h.Delete)
	r.GET("/ratings", h.Ratings)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var author = &middleware.Identity{UserID: 1, Role: models.RoleStudent}

func seed(store *memStore, userID, eventID int64, rating int) {
	_, _ = store.Create(context.Background(), CreateParams{
		UserID: userID, EventID: eventID, Rating: rating, Comment: "nice", Timestamp: time.Now(),
	})
}

func TestCreateRequiresAllFields(t *testing.T) {
	r := newRouter(newMemStore(), author)
	bodies := []string{
		`{"event_id":1,"rating":4,"comment":"x","timestamp":"2030-01-01T00:00:00Z"}`,
		`{"user_id":1,"rating":4,"comment":"x","timestamp":"2030-01-01T00:00:00Z"}`,
		`{"user_id":1,"event_id":1,"comment":"x","timestamp":"2030-01-01T00:00:00Z"}`,
		`{"user_id":1,"event_id":1,"rating":4,"comment":"  ","timestamp":"2030-01-01T00:00:00Z"}`,
		`{"user_id":1,"event_id":1,"rating":4,"comment":"x"}`,
		`{"user_id":1,"event_id":1,"rating":6,"comment":"x","timestamp":"2030-01-01T00:00:00Z"}`,
	}
	for _, body := range bodies {
		w := do(r, http.MethodPost, "/comments", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestCreateReturnsRowWithEmail(t *testing.T) {
	r := newRouter(newMemStore(), author)
	w := do(r, http.MethodPost, "/comments",
		`{"user_id":1,"event_id":7,"rating":4,"comment":"great talk","timestamp":"2030-01-01T10:00:00Z"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got models.Comment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, int64(7), got.EventID)
	assert.Equal(t, "great talk", got.Comment)
	assert.Equal(t, "user@uni.edu", got.Email)
}

func TestCreateForAnotherUserIsForbidden(t *testing.T) {
	r := newRouter(newMemStore(), author)
	w := do(r, http.MethodPost, "/comments",
		`{"user_id":2,"event_id":7,"rating":4,"comment":"x","timestamp":"2030-01-01T10:00:00Z"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListRequiresEventAndKeepsInsertionOrder(t *testing.T) {
	store := newMemStore()
	seed(store, 1, 7, 3)
	seed(store, 2, 8, 3)
	seed(store, 2, 7, 5)
	r := newRouter(store, nil)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/comments", "").Code)

	w := do(r, http.MethodGet, "/comments?event_id=7", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got []models.Comment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, []int64{1, 3}, []int64{got[0].ID, got[1].ID})

	w = do(r, http.MethodGet, "/comments?event_id=99", "")
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestUpdate(t *testing.T) {
	store := newMemStore()
	seed(store, 1, 7, 3)
	seed(store, 2, 7, 3)
	r := newRouter(store, author)

	w := do(r, http.MethodPut, "/comments", `{"comment_id":1,"new_comment":"edited"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "edited", store.comments[1].Comment)

	w = do(r, http.MethodPut, "/comments/1", `{"new_comment":"again"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "again", store.comments[1].Comment)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, "/comments", `{"comment_id":1}`).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPut, "/comments", `{"comment_id":42,"new_comment":"x"}`).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPut, "/comments/2", `{"new_comment":"x"}`).Code)
}

func TestDeleteTwiceReportsNotFound(t *testing.T) {
	store := newMemStore()
	seed(store, 1, 7, 3)
	seed(store, 1, 7, 4)
	r := newRouter(store, author)

	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/comments?comment_id=1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/comments?comment_id=1", "").Code)

	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/comments/2", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/comments/2", "").Code)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodDelete, "/comments", "").Code)
}

func TestSuperAdminDeletesAnyComment(t *testing.T) {
	store := newMemStore()
	seed(store, 1, 7, 3)
	r := newRouter(store, &middleware.Identity{UserID: 9, Role: models.RoleSuperAdmin})
	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/comments/1", "").Code)
}

func TestByUserAndRatings(t *testing.T) {
	store := newMemStore()
	seed(store, 1, 7, 2)
	seed(store, 2, 7, 5)
	seed(store, 1, 8, 4)
	r := newRouter(store, nil)

	w := do(r, http.MethodGet, "/comments/user?user_id=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[1,3]`, w.Body.String())

	w = do(r, http.MethodGet, "/ratings?event_id=7", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"event_id":7,"count":2,"average":3.5}`, w.Body.String())

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/ratings", "").Code)
}

func TestHiddenEventIsNotFound(t *testing.T) {
	store := newMemStore()
	store.rsoEvents = map[int64][]int64{7: {2}}
	seed(store, 2, 7, 4)

	outsider := newRouter(store, author)
	assert.Equal(t, http.StatusNotFound, do(outsider, http.MethodGet, "/comments?event_id=7", "").Code)
	assert.Equal(t, http.StatusNotFound, do(outsider, http.MethodGet, "/ratings?event_id=7", "").Code)
	w := do(outsider, http.MethodPost, "/comments",
		`{"user_id":1,"event_id":7,"rating":5,"comment":"sneaky","timestamp":"2030-05-01T10:00:00Z"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Len(t, store.comments, 1)

	anonymous := newRouter(store, nil)
	assert.Equal(t, http.StatusNotFound, do(anonymous, http.MethodGet, "/comments?event_id=7", "").Code)

	member := newRouter(store, &middleware.Identity{UserID: 2, Role: models.RoleStudent})
	w = do(member, http.MethodGet, "/comments?event_id=7", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"rating":4`)
	assert.Equal(t, http.StatusOK, do(member, http.MethodGet, "/ratings?event_id=7", "").Code)
}
