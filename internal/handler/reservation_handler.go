package handler

import (
	"strconv"

	"github.com/Kilat-Lodge/service-reservation/internal/application"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/stay"
	"github.com/Kilat-Lodge/service-reservation/internal/platform/middleware"
	"github.com/Kilat-Lodge/service-reservation/internal/platform/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReservationHandler handles the guest-facing reservation endpoints.
type ReservationHandler struct {
	service *application.ReservationService
}

// NewReservationHandler creates a new ReservationHandler.
func NewReservationHandler(service *application.ReservationService) *ReservationHandler {
	return &ReservationHandler{service: service}
}

// RegisterRoutes registers all reservation routes on the given router group.
func (h *ReservationHandler) RegisterRoutes(r *gin.RouterGroup) {
	v1 := r.Group("/api/v1")
	{
		v1.GET("/rooms", h.ListRooms)
		v1.GET("/rooms/:id/availability", h.RoomAvailability)
		v1.GET("/availability", h.PropertyAvailability)
		v1.POST("/season-check", h.SeasonCheck)
		v1.POST("/quote", h.Quote)
	}

	session := v1.Group("")
	session.Use(requireSession())
	{
		session.GET("/holds", h.ListHolds)
		session.POST("/holds", h.PlaceHold)
		session.POST("/holds/bulk", h.PlaceBulkHold)
		session.PUT("/holds/:id", h.UpdateHold)
		session.DELETE("/holds/:id", h.ReleaseHold)
		session.POST("/checkout", h.Checkout)
	}
}

// ListRooms handles GET /api/v1/rooms.
func (h *ReservationHandler) ListRooms(c *gin.Context) {
	response.Success(c, h.service.Rooms())
}

// RoomAvailability handles GET /api/v1/rooms/:id/availability?from=&to=.
func (h *ReservationHandler) RoomAvailability(c *gin.Context) {
	from, to, ok := parseWindow(c)
	if !ok {
		return
	}
	session, _ := middleware.GetSessionID(c)

	result, err := h.service.RoomAvailability(c.Request.Context(), session, c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// PropertyAvailability handles GET /api/v1/availability?from=&to=.
func (h *ReservationHandler) PropertyAvailability(c *gin.Context) {
	from, to, ok := parseWindow(c)
	if !ok {
		return
	}
	session, _ := middleware.GetSessionID(c)

	result, err := h.service.PropertyAvailability(c.Request.Context(), session, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ListHolds handles GET /api/v1/holds.
func (h *ReservationHandler) ListHolds(c *gin.Context) {
	result, err := h.service.ListHolds(c.Request.Context(), sessionOf(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// PlaceHold handles POST /api/v1/holds.
func (h *ReservationHandler) PlaceHold(c *gin.Context) {
	var req application.PlaceHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.PlaceHold(c.Request.Context(), sessionOf(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// PlaceBulkHold handles POST /api/v1/holds/bulk.
func (h *ReservationHandler) PlaceBulkHold(c *gin.Context) {
	var req application.PlaceBulkHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.PlaceBulkHold(c.Request.Context(), sessionOf(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// UpdateHold handles PUT /api/v1/holds/:id.
func (h *ReservationHandler) UpdateHold(c *gin.Context) {
	holdID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid hold ID")
		return
	}

	var req application.UpdateHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateHold(c.Request.Context(), sessionOf(c), holdID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ReleaseHold handles DELETE /api/v1/holds/:id.
func (h *ReservationHandler) ReleaseHold(c *gin.Context) {
	holdID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid hold ID")
		return
	}

	if err := h.service.ReleaseHold(c.Request.Context(), sessionOf(c), holdID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Checkout handles POST /api/v1/checkout.
func (h *ReservationHandler) Checkout(c *gin.Context) {
	var req application.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Checkout(c.Request.Context(), sessionOf(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// SeasonCheck handles POST /api/v1/season-check.
func (h *ReservationHandler) SeasonCheck(c *gin.Context) {
	var req application.SeasonCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SeasonCheck(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Quote handles POST /api/v1/quote.
func (h *ReservationHandler) Quote(c *gin.Context) {
	var req application.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Quote(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// requireSession rejects requests without a session header.
func requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := middleware.GetSessionID(c); !ok {
			response.BadRequest(c, "missing "+middleware.HeaderSessionID+" header")
			return
		}
		c.Next()
	}
}

func sessionOf(c *gin.Context) string {
	s, _ := middleware.GetSessionID(c)
	return s
}

// parseWindow reads the from and to query dates. It writes the error
// response itself.
func parseWindow(c *gin.Context) (stay.Date, stay.Date, bool) {
	from, err := stay.ParseDate(c.Query("from"))
	if err != nil {
		response.BadRequest(c, "invalid from date: "+err.Error())
		return stay.Date{}, stay.Date{}, false
	}
	to, err := stay.ParseDate(c.Query("to"))
	if err != nil {
		response.BadRequest(c, "invalid to date: "+err.Error())
		return stay.Date{}, stay.Date{}, false
	}
	return from, to, true
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
