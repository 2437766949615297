// Package response writes the JSON envelope shared by every endpoint.
package response

import (
	"net/http"

	"github.com/Kilat-Lodge/service-reservation/internal/domain"
	"github.com/gin-gonic/gin"
)

// Body is the response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorBody describes a failure.
type ErrorBody struct {
	Kind    domain.ErrorKind       `json:"kind"`
	Reason  domain.Reason          `json:"reason,omitempty"`
	Message string                 `json:"message"`
	Rooms   []domain.RoomRejection `json:"rooms,omitempty"`
}

// Meta carries pagination details.
type Meta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// Success writes a 200 response.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created writes a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent writes a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Paginated writes a 200 response with pagination metadata.
func Paginated(c *gin.Context, data interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, Body{
		Success: true,
		Data:    data,
		Meta:    &Meta{Total: total, Page: page, Limit: limit},
	})
}

// BadRequest writes a 400 validation response.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Body{
		Error: &ErrorBody{Kind: domain.KindValidation, Reason: domain.ReasonValidation, Message: message},
	})
}

// Unauthorized writes a 401 response.
func Unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Body{
		Error: &ErrorBody{Kind: "unauthorized", Message: message},
	})
}

// Forbidden writes a 403 response.
func Forbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, Body{
		Error: &ErrorBody{Kind: "forbidden", Message: message},
	})
}

// Error maps err to a status code. Domain errors are rendered in full;
// anything else is reported as an opaque internal error.
func Error(c *gin.Context, err error) {
	de, ok := domain.AsError(err)
	if !ok {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, Body{
			Error: &ErrorBody{Kind: "internal", Message: "internal server error"},
		})
		return
	}
	c.AbortWithStatusJSON(StatusFor(de), Body{
		Error: &ErrorBody{Kind: de.Kind, Reason: de.Reason, Message: de.Message, Rooms: de.Rooms},
	})
}

// StatusFor returns the HTTP status of a domain error.
func StatusFor(de *domain.Error) int {
	switch de.Kind {
	case domain.KindValidation:
		if de.Reason == domain.ReasonCapacityExceeded {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadRequest
	case domain.KindConflict, domain.KindConsistency:
		return http.StatusConflict
	case domain.KindSeason:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
