package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campus-events/backend/pkg/apperrors"
)

// ErrorBody is the JSON body of every failed request.
type ErrorBody struct {
	Error string `json:"error"`
}

// MessageBody is the JSON body of informational successes.
type MessageBody struct {
	Message string `json:"message"`
}

// OK sends a 200 JSON response with data as the body.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Message sends a 200 JSON response with a message field.
func Message(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, MessageBody{Message: msg})
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, ErrorBody{Error: err})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, ErrorBody{Error: err})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, ErrorBody{Error: err})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, ErrorBody{Error: err})
}

// Conflict sends 409.
func Conflict(c *gin.Context, err string) {
	c.JSON(http.StatusConflict, ErrorBody{Error: err})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, ErrorBody{Error: err})
}

// Error translates err into a status and body. The full error is attached
// to the gin context so the request logger records it.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(apperrors.Status(err), ErrorBody{Error: apperrors.Message(err)})
}
