package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Kilat-Lodge/service-reservation/internal/application"
	"github.com/Kilat-Lodge/service-reservation/internal/platform/auth"
	"github.com/Kilat-Lodge/service-reservation/internal/platform/middleware"
	"github.com/Kilat-Lodge/service-reservation/internal/platform/response"
)

// AdminBookingHandler handles admin HTTP requests for bookings and blocks.
type AdminBookingHandler struct {
	service *application.BookingService
}

// NewAdminBookingHandler creates a new AdminBookingHandler.
func NewAdminBookingHandler(service *application.BookingService) *AdminBookingHandler {
	return &AdminBookingHandler{service: service}
}

// RegisterRoutes registers admin routes.
func (h *AdminBookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/bookings", h.ListBookings)
		admin.GET("/stats/bookings", h.BookingStats)
		admin.POST("/bookings/:id/paid", h.MarkPaid)
		admin.POST("/bookings/:id/cancel", h.CancelBooking)

		admin.GET("/blocks", h.ListBlocks)
		admin.POST("/blocks", h.CreateBlock)
		admin.DELETE("/blocks/:id", h.DeleteBlock)
	}
}

// ListBookings handles GET /api/v1/admin/bookings.
func (h *AdminBookingHandler) ListBookings(c *gin.Context) {
	page, limit := parsePagination(c)

	bookings, total, err := h.service.ListAllBookings(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, bookings, total, page, limit)
}

// BookingStats handles GET /api/v1/admin/stats/bookings.
func (h *AdminBookingHandler) BookingStats(c *gin.Context) {
	stats, err := h.service.GetBookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// MarkPaid handles POST /api/v1/admin/bookings/:id/paid.
func (h *AdminBookingHandler) MarkPaid(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	var req application.MarkPaidRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	result, err := h.service.MarkPaid(c.Request.Context(), bookingID, req.Reference)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CancelBooking handles POST /api/v1/admin/bookings/:id/cancel.
func (h *AdminBookingHandler) CancelBooking(c *gin.Context) {
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return
	}

	var req application.CancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	result, err := h.service.CancelBooking(c.Request.Context(), bookingID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ListBlocks handles GET /api/v1/admin/blocks.
func (h *AdminBookingHandler) ListBlocks(c *gin.Context) {
	blocks, err := h.service.ListBlocks(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, blocks)
}

// CreateBlock handles POST /api/v1/admin/blocks.
func (h *AdminBookingHandler) CreateBlock(c *gin.Context) {
	var req application.CreateBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateBlock(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// DeleteBlock handles DELETE /api/v1/admin/blocks/:id.
func (h *AdminBookingHandler) DeleteBlock(c *gin.Context) {
	blockID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid block ID")
		return
	}

	if err := h.service.DeleteBlock(c.Request.Context(), blockID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
