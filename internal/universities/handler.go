package universities

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campus-events/backend/internal/models"
	"github.com/campus-events/backend/pkg/response"
)

// Store is the persistence the university handlers need.
type Store interface {
	List(ctx context.Context) ([]models.University, error)
	GetByID(ctx context.Context, id int64) (*models.University, error)
}

// Handler serves the read-only university endpoints.
type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// List handles GET /universities.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /universities/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid university id")
		return
	}
	u, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u)
}
