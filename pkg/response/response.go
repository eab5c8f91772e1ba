package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/course-scheduling-api/pkg/errors"
)

// Meta carries response-level facts that are not part of the payload.
type Meta map[string]interface{}

// Envelope represents the common response contract.
type Envelope struct {
	Data  interface{}      `json:"data,omitempty"`
	Error *appErrors.Error `json:"error,omitempty"`
	Meta  Meta             `json:"meta,omitempty"`
}

// Scheduling data changes under the caller (seats, grades, run status), so
// no response is cacheable by intermediaries.
func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// JSON sends data in the envelope. meta may be nil.
func JSON(c *gin.Context, status int, data interface{}, meta Meta) {
	noStore(c)
	c.JSON(status, Envelope{Data: data, Meta: meta})
}

// OK responds with HTTP 200.
func OK(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data, nil)
}

// List responds with HTTP 200 and records the item count in meta.
func List(c *gin.Context, items interface{}, count int) {
	JSON(c, http.StatusOK, items, Meta{"count": count})
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Accepted responds with HTTP 202 for work handed to a background runner.
func Accepted(c *gin.Context, data interface{}) {
	JSON(c, http.StatusAccepted, data, nil)
}

// Error maps err onto its API error. Server-side faults are attached to the
// context so the request logger picks them up; client errors are not.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	noStore(c)
	c.JSON(appErr.Status, Envelope{Error: appErr})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
