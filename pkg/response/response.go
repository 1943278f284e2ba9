package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/helicone-dashboard/backend/pkg/apperr"
)

// ErrorBody describes a failed request.
type ErrorBody struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

// Body is the standard API response envelope. Exactly one of Data and Error is set.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Error   *ErrorBody  `json:"error"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// Fail aborts the request with the given kind and message.
func Fail(c *gin.Context, kind apperr.Kind, message string) {
	c.AbortWithStatusJSON(apperr.Status(kind), Body{
		Success: false,
		Error:   &ErrorBody{Kind: kind, Message: message},
	})
}

// Error maps err to its kind and aborts. The error is attached to the gin
// context so the logger middleware records it.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)
	Fail(c, apperr.KindOf(err), apperr.MessageOf(err))
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, msg string) {
	Fail(c, apperr.KindInvalidInput, msg)
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, msg string) {
	Fail(c, apperr.KindUnauthenticated, msg)
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, msg string) {
	Fail(c, apperr.KindForbidden, msg)
}

// NotFound sends 404.
func NotFound(c *gin.Context, msg string) {
	Fail(c, apperr.KindNotFound, msg)
}

// Conflict sends 409.
func Conflict(c *gin.Context, msg string) {
	Fail(c, apperr.KindConflict, msg)
}

// MethodNotAllowed sends 405.
func MethodNotAllowed(c *gin.Context) {
	Fail(c, apperr.KindMethodNotAllowed, "Method "+c.Request.Method+" Not Allowed")
}

// TooManyRequests sends 429.
func TooManyRequests(c *gin.Context, msg string) {
	Fail(c, apperr.KindRateLimited, msg)
}

// Internal sends 500.
func Internal(c *gin.Context, msg string) {
	Fail(c, apperr.KindInternal, msg)
}
