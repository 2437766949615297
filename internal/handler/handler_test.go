package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Kilat-Lodge/service-reservation/internal/application"
	bookingDomain "github.com/Kilat-Lodge/service-reservation/internal/domain/booking"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/reservation"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/stay"
	"github.com/Kilat-Lodge/service-reservation/internal/platform/auth"
	"github.com/Kilat-Lodge/service-reservation/internal/platform/kafka"
	"github.com/Kilat-Lodge/service-reservation/internal/platform/middleware"
	"github.com/Kilat-Lodge/service-reservation/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2025, 9, 15, 9, 0, 0, 0, time.UTC)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Kind   string `json:"kind"`
		Reason string `json:"reason"`
		Rooms  []struct {
			RoomID string `json:"room_id"`
			Reason string `json:"reason"`
		} `json:"rooms"`
	} `json:"error"`
	Meta *struct {
		Total int64 `json:"total"`
	} `json:"meta"`
}

type testServer struct {
	router *gin.Engine
	jwt    *auth.JWTManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rates := property.RateCard{property.TierInternal: {Base: 298, Adult: 49, Child: 24}}
	catalog, err := property.NewCatalog("EUR", []property.Room{
		{ID: "alder", Name: "Alder", Capacity: 4, Rates: rates},
		{ID: "birch", Name: "Birch", Capacity: 2, Rates: rates},
	}, rates, []property.Season{{
		Name:  "winter-holidays",
		Start: stay.MustParseDate("2025-12-20"),
		End:   stay.MustParseDate("2026-01-06"),
		Codes: []string{"SNOW26"},
		Year:  2026,
	}})
	require.NoError(t, err)

	policy := reservation.NewClockPolicy(reservation.NewFakeClock(testNow), reservation.DefaultCutoffRule, time.UTC)
	store := repository.NewMemoryStore()
	limits := bookingDomain.GuestLimits{Floor: 2, Ceiling: 6}
	pricing := bookingDomain.NewStandardPricingStrategy(bookingDomain.BaseTierCheapest, limits)
	resolver := reservation.NewConflictResolver(policy)
	gate := reservation.NewSeasonGate(catalog.Seasons, policy)
	logger := zap.NewNop()

	reservations := application.NewReservationService(application.ReservationDeps{
		Catalog:      catalog,
		Index:        reservation.NewAvailabilityIndex(store, catalog, policy),
		Holds:        reservation.NewHoldStore(store, catalog, resolver, policy, reservation.HoldPolicy{Bulk: limits}, logger),
		Gate:         gate,
		Consolidator: reservation.NewBookingConsolidator(store, catalog, resolver, gate, pricing, 900, policy),
		Pricing:      pricing,
		BulkBaseFee:  900,
		Clock:        policy,
		Producer:     kafka.NopPublisher{},
	}, logger)
	bookings := application.NewBookingService(store, store, catalog, policy, kafka.NopPublisher{}, "", logger)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour, "service-reservation")

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	root := router.Group("")
	NewReservationHandler(reservations).RegisterRoutes(root)
	NewBookingHandler(bookings).RegisterRoutes(root)
	NewAdminBookingHandler(bookings).RegisterRoutes(root, jwtManager)

	return &testServer{router: router, jwt: jwtManager}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (s *testServer) adminToken(t *testing.T, role string) map[string]string {
	t.Helper()
	token, err := s.jwt.GenerateToken("operator-1", role, time.Now())
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func session(id string) map[string]string {
	return map[string]string{middleware.HeaderSessionID: id}
}

func holdBody(roomID, checkIn, checkOut string, guests int, code string) map[string]interface{} {
	g := make([]map[string]string, guests)
	for i := range g {
		g[i] = map[string]string{"age_class": "adult", "tier": "internal"}
	}
	return map[string]interface{}{
		"room_id":     roomID,
		"check_in":    checkIn,
		"check_out":   checkOut,
		"guests":      g,
		"access_code": code,
	}
}

func TestHolds_RequireSession(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/holds", holdBody("alder", "2025-11-01", "2025-11-03", 2, ""), nil)
	assert.Equal(t, http.StatusBadRequest, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation", env.Error.Kind)

	code, _ = s.do(t, http.MethodGet, "/api/v1/holds", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHolds_Lifecycle(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/holds", holdBody("alder", "2025-11-01", "2025-11-03", 2, ""), session("s1"))
	require.Equal(t, http.StatusCreated, code)
	var held application.HoldDTO
	require.NoError(t, json.Unmarshal(env.Data, &held))
	assert.Equal(t, 2, held.Nights)

	code, env = s.do(t, http.MethodPost, "/api/v1/holds", holdBody("alder", "2025-11-02", "2025-11-04", 1, ""), session("s2"))
	assert.Equal(t, http.StatusConflict, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "held-by-other", env.Error.Reason)

	code, env = s.do(t, http.MethodGet, "/api/v1/holds", nil, session("s1"))
	require.Equal(t, http.StatusOK, code)
	var list []application.HoldDTO
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)

	update := map[string]interface{}{
		"check_in":  "2025-11-05",
		"check_out": "2025-11-06",
		"guests":    []map[string]string{{"age_class": "child", "tier": "internal"}},
	}
	code, _ = s.do(t, http.MethodPut, "/api/v1/holds/"+held.ID.String(), update, session("s1"))
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodDelete, "/api/v1/holds/"+held.ID.String(), nil, session("s2"))
	assert.Equal(t, http.StatusNotFound, code, "another session cannot release the hold")

	code, _ = s.do(t, http.MethodDelete, "/api/v1/holds/"+held.ID.String(), nil, session("s1"))
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = s.do(t, http.MethodDelete, "/api/v1/holds/not-a-uuid", nil, session("s1"))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHolds_ErrorStatuses(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/holds", holdBody("birch", "2025-11-01", "2025-11-03", 3, ""), session("s1"))
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "capacity-exceeded", env.Error.Reason)

	code, env = s.do(t, http.MethodPost, "/api/v1/holds", holdBody("alder", "2025-12-27", "2025-12-29", 2, ""), session("s1"))
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "season", env.Error.Kind)
	assert.Equal(t, "code-required", env.Error.Reason)

	code, _ = s.do(t, http.MethodPost, "/api/v1/holds", holdBody("oak", "2025-11-01", "2025-11-03", 1, ""), session("s1"))
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/holds", map[string]string{"room_id": "alder"}, session("s1"))
	assert.Equal(t, http.StatusBadRequest, code, "guests are required")

	code, _ = s.do(t, http.MethodPost, "/api/v1/holds", holdBody("alder", "01/11/2025", "2025-11-03", 1, ""), session("s1"))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestBulkHold(t *testing.T) {
	s := newTestServer(t)
	body := holdBody("", "2025-11-14", "2025-11-16", 4, "")
	delete(body, "room_id")

	code, env := s.do(t, http.MethodPost, "/api/v1/holds/bulk", body, session("s1"))
	require.Equal(t, http.StatusCreated, code)
	var holds []application.HoldDTO
	require.NoError(t, json.Unmarshal(env.Data, &holds))
	assert.Len(t, holds, 2)

	code, env = s.do(t, http.MethodPost, "/api/v1/holds/bulk", body, session("s2"))
	assert.Equal(t, http.StatusConflict, code)
	assert.Len(t, env.Error.Rooms, 2, "every conflicting room is listed")
}

func TestCheckoutAndManage(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(t, http.MethodPost, "/api/v1/holds", holdBody("alder", "2025-11-01", "2025-11-03", 2, ""), session("s1"))
	require.Equal(t, http.StatusCreated, code)

	contact := map[string]interface{}{"contact": map[string]string{"name": "Grace Hopper", "email": "grace@example.com"}}
	code, env := s.do(t, http.MethodPost, "/api/v1/checkout", contact, session("s1"))
	require.Equal(t, http.StatusCreated, code)
	var booked application.BookingDTO
	require.NoError(t, json.Unmarshal(env.Data, &booked))
	require.NotEmpty(t, booked.ManageToken)

	code, env = s.do(t, http.MethodGet, "/api/v1/manage/"+booked.ManageToken, nil, nil)
	require.Equal(t, http.StatusOK, code)
	var fetched application.BookingDTO
	require.NoError(t, json.Unmarshal(env.Data, &fetched))
	assert.Equal(t, booked.ID, fetched.ID)
	assert.Empty(t, fetched.ManageToken)

	code, _ = s.do(t, http.MethodPost, "/api/v1/manage/"+booked.ManageToken+"/cancel", nil, nil)
	assert.Equal(t, http.StatusOK, code, "the cancel body is optional")

	code, _ = s.do(t, http.MethodGet, "/api/v1/manage/unknown-token", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/checkout", contact, session("s1"))
	assert.Equal(t, http.StatusBadRequest, code, "nothing left to check out")
}

func TestAvailabilityEndpoints(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/api/v1/rooms/alder/availability?from=2025-11-01&to=2025-11-07", nil, nil)
	require.Equal(t, http.StatusOK, code)
	var cal application.RoomAvailabilityDTO
	require.NoError(t, json.Unmarshal(env.Data, &cal))
	assert.Len(t, cal.Days, 7)

	code, _ = s.do(t, http.MethodGet, "/api/v1/availability?from=2025-11-01", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/rooms/oak/availability?from=2025-11-01&to=2025-11-02", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = s.do(t, http.MethodGet, "/api/v1/rooms", nil, nil)
	require.Equal(t, http.StatusOK, code)
	var rooms []property.Room
	require.NoError(t, json.Unmarshal(env.Data, &rooms))
	assert.Len(t, rooms, 2)
}

func TestSeasonCheckAndQuote(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/season-check", map[string]interface{}{
		"check_in": "2025-12-27", "check_out": "2025-12-29", "access_code": "WRONG",
	}, nil)
	require.Equal(t, http.StatusOK, code)
	var verdict application.SeasonCheckDTO
	require.NoError(t, json.Unmarshal(env.Data, &verdict))
	assert.Equal(t, reservation.OutcomeReject, verdict.Outcome)
	assert.Equal(t, "invalid-code", verdict.Reason)

	code, env = s.do(t, http.MethodPost, "/api/v1/quote", holdBody("alder", "2025-11-01", "2025-11-03", 2, ""), nil)
	require.Equal(t, http.StatusOK, code)
	var quote application.QuoteDTO
	require.NoError(t, json.Unmarshal(env.Data, &quote))
	assert.Equal(t, int64(792), quote.Total)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodGet, "/api/v1/admin/bookings", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/admin/bookings", nil, map[string]string{"Authorization": "Bearer forged"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/admin/bookings", nil, s.adminToken(t, "guest"))
	assert.Equal(t, http.StatusForbidden, code)

	admin := s.adminToken(t, auth.RoleAdmin)
	code, env := s.do(t, http.MethodPost, "/api/v1/admin/blocks", map[string]string{
		"room_id": "*", "start": "2025-11-20", "end": "2025-11-21", "reason": "staff week",
	}, admin)
	require.Equal(t, http.StatusCreated, code)
	var block application.BlockDTO
	require.NoError(t, json.Unmarshal(env.Data, &block))

	code, env = s.do(t, http.MethodPost, "/api/v1/holds", holdBody("birch", "2025-11-21", "2025-11-22", 1, ""), session("s1"))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "blocked", env.Error.Reason)

	code, _ = s.do(t, http.MethodDelete, "/api/v1/admin/blocks/"+block.ID.String(), nil, admin)
	assert.Equal(t, http.StatusNoContent, code)

	code, env = s.do(t, http.MethodGet, "/api/v1/admin/bookings?page=1&limit=5", nil, admin)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, env.Meta)
	assert.Zero(t, env.Meta.Total)
}

func TestAdmin_MarkPaidAndCancel(t *testing.T) {
	s := newTestServer(t)
	admin := s.adminToken(t, auth.RoleAdmin)

	_, _ = s.do(t, http.MethodPost, "/api/v1/holds", holdBody("alder", "2025-11-01", "2025-11-03", 2, ""), session("s1"))
	contact := map[string]interface{}{"contact": map[string]string{"name": "Grace Hopper", "email": "grace@example.com"}}
	code, env := s.do(t, http.MethodPost, "/api/v1/checkout", contact, session("s1"))
	require.Equal(t, http.StatusCreated, code)
	var booked application.BookingDTO
	require.NoError(t, json.Unmarshal(env.Data, &booked))

	code, env = s.do(t, http.MethodPost, "/api/v1/admin/bookings/"+booked.ID.String()+"/paid", map[string]string{"reference": "bank-42"}, admin)
	require.Equal(t, http.StatusOK, code)
	var paid application.BookingDTO
	require.NoError(t, json.Unmarshal(env.Data, &paid))
	assert.True(t, paid.Paid)

	code, _ = s.do(t, http.MethodPost, "/api/v1/admin/bookings/"+booked.ID.String()+"/cancel", map[string]string{"reason": "duplicate"}, admin)
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodGet, "/api/v1/admin/stats/bookings", nil, admin)
	require.Equal(t, http.StatusOK, code)
	var stats map[string]int64
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(1), stats["cancelled"])

	code, _ = s.do(t, http.MethodPost, "/api/v1/admin/bookings/not-a-uuid/paid", nil, admin)
	assert.Equal(t, http.StatusBadRequest, code)
}
