package handler

import (
	"github.com/Kilat-Lodge/service-reservation/internal/application"
	"github.com/Kilat-Lodge/service-reservation/internal/platform/response"
	"github.com/gin-gonic/gin"
)

// BookingHandler handles guest self-service on a confirmed booking. The
// manage token in the path is the only credential.
type BookingHandler struct {
	service *application.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers the manage routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup) {
	manage := r.Group("/api/v1/manage")
	{
		manage.GET("/:token", h.GetBooking)
		manage.POST("/:token/cancel", h.CancelBooking)
	}
}

// GetBooking handles GET /api/v1/manage/:token.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	result, err := h.service.GetByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CancelBooking handles POST /api/v1/manage/:token/cancel.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var req application.CancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	result, err := h.service.CancelByToken(c.Request.Context(), c.Param("token"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
