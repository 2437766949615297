package application

import (
	"context"
	"time"

	"github.com/Kilat-Lodge/service-reservation/internal/domain"
	bookingDomain "github.com/Kilat-Lodge/service-reservation/internal/domain/booking"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/hold"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/reservation"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/stay"
	"github.com/Kilat-Lodge/service-reservation/internal/messages"
	"github.com/Kilat-Lodge/service-reservation/internal/platform/kafka"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReservationService is the guest-facing application service: availability,
// holds, season checks, quotes and checkout.
type ReservationService struct {
	catalog      *property.Catalog
	index        *reservation.AvailabilityIndex
	holds        *reservation.HoldStore
	gate         *reservation.SeasonGate
	consolidator *reservation.BookingConsolidator
	pricing      bookingDomain.PricingStrategy
	bulkBaseFee  int64
	clock        *reservation.ClockPolicy
	events       *eventPublisher
	logger       *zap.Logger
}

// ReservationDeps groups the collaborators of a ReservationService.
type ReservationDeps struct {
	Catalog      *property.Catalog
	Index        *reservation.AvailabilityIndex
	Holds        *reservation.HoldStore
	Gate         *reservation.SeasonGate
	Consolidator *reservation.BookingConsolidator
	Pricing      bookingDomain.PricingStrategy
	BulkBaseFee  int64
	Clock        *reservation.ClockPolicy
	Producer     kafka.Publisher
	Topic        string
}

// NewReservationService creates a new ReservationService.
func NewReservationService(deps ReservationDeps, logger *zap.Logger) *ReservationService {
	return &ReservationService{
		catalog:      deps.Catalog,
		index:        deps.Index,
		holds:        deps.Holds,
		gate:         deps.Gate,
		consolidator: deps.Consolidator,
		pricing:      deps.Pricing,
		bulkBaseFee:  deps.BulkBaseFee,
		clock:        deps.Clock,
		events:       newEventPublisher(deps.Producer, deps.Topic, logger),
		logger:       logger,
	}
}

// Rooms returns the room catalog.
func (s *ReservationService) Rooms() []property.Room {
	return s.catalog.Rooms
}

// RoomAvailability returns the status of one room for every date from
// through to, both included.
func (s *ReservationService) RoomAvailability(ctx context.Context, sessionID, roomID string, from, to stay.Date) (*RoomAvailabilityDTO, error) {
	window, err := inclusiveWindow(from, to)
	if err != nil {
		return nil, err
	}
	days, err := s.index.Calendar(ctx, roomID, window, sessionID)
	if err != nil {
		return nil, err
	}
	return &RoomAvailabilityDTO{RoomID: roomID, From: from, To: to, Days: days}, nil
}

// PropertyAvailability returns the calendar of every room.
func (s *ReservationService) PropertyAvailability(ctx context.Context, sessionID string, from, to stay.Date) (*PropertyAvailabilityDTO, error) {
	window, err := inclusiveWindow(from, to)
	if err != nil {
		return nil, err
	}
	calendars, err := s.index.PropertyCalendar(ctx, window, sessionID)
	if err != nil {
		return nil, err
	}

	rooms := make([]RoomAvailabilityDTO, 0, len(calendars))
	for _, roomID := range s.catalog.RoomIDs() {
		rooms = append(rooms, RoomAvailabilityDTO{RoomID: roomID, From: from, To: to, Days: calendars[roomID]})
	}
	return &PropertyAvailabilityDTO{From: from, To: to, Rooms: rooms}, nil
}

// PlaceHold checks the season rules and then holds one room.
func (s *ReservationService) PlaceHold(ctx context.Context, sessionID string, req PlaceHoldRequest) (*HoldDTO, error) {
	st, err := stayOf(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Check(st, reservation.RequestSingleRoom, req.AccessCode); err != nil {
		return nil, err
	}

	h, err := s.holds.Create(ctx, sessionID, req.RoomID, st, req.Guests, req.AccessCode)
	if err != nil {
		return nil, err
	}

	s.logger.Info("hold placed",
		zap.String("hold_id", h.ID.String()),
		zap.String("room_id", h.RoomID),
		zap.String("stay", h.Stay.String()),
	)
	s.publishHoldPlaced(ctx, h)

	dto := toHoldDTO(h)
	return &dto, nil
}

// PlaceBulkHold checks the season rules and then holds every room.
func (s *ReservationService) PlaceBulkHold(ctx context.Context, sessionID string, req PlaceBulkHoldRequest) ([]HoldDTO, error) {
	st, err := stayOf(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Check(st, reservation.RequestBulk, req.AccessCode); err != nil {
		return nil, err
	}

	created, err := s.holds.CreateBulk(ctx, sessionID, st, req.Guests, req.AccessCode)
	if err != nil {
		return nil, err
	}

	s.logger.Info("whole-property hold placed",
		zap.String("bulk_group", created[0].BulkGroup.String()),
		zap.String("stay", st.String()),
		zap.Int("guests", len(req.Guests)),
	)
	for _, h := range created {
		s.publishHoldPlaced(ctx, h)
	}
	return toHoldDTOs(created), nil
}

// UpdateHold moves a hold to a new stay or roster. The hold keeps its
// access code, which is checked against the new stay.
func (s *ReservationService) UpdateHold(ctx context.Context, sessionID string, holdID uuid.UUID, req UpdateHoldRequest) (*HoldDTO, error) {
	st, err := stayOf(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}

	current, err := s.findHold(ctx, sessionID, holdID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Check(st, reservation.RequestSingleRoom, current.AccessCode); err != nil {
		return nil, err
	}

	h, err := s.holds.Update(ctx, sessionID, holdID, st, req.Guests)
	if err != nil {
		return nil, err
	}
	s.logger.Info("hold updated",
		zap.String("hold_id", h.ID.String()),
		zap.String("stay", h.Stay.String()),
	)

	dto := toHoldDTO(h)
	return &dto, nil
}

// ReleaseHold deletes a hold, or its whole bulk group.
func (s *ReservationService) ReleaseHold(ctx context.Context, sessionID string, holdID uuid.UUID) error {
	released, err := s.holds.Delete(ctx, sessionID, holdID)
	if err != nil {
		return err
	}

	evt := messages.HoldReleasedEvent{OccurredAt: s.clock.Now().UTC()}
	for _, h := range released {
		evt.HoldIDs = append(evt.HoldIDs, h.ID)
		evt.RoomIDs = append(evt.RoomIDs, h.RoomID)
	}
	s.logger.Info("hold released", zap.Strings("room_ids", evt.RoomIDs))
	s.events.publish(ctx, messages.HoldReleased, holdID.String(), evt)
	return nil
}

// ListHolds returns the session's live holds.
func (s *ReservationService) ListHolds(ctx context.Context, sessionID string) ([]HoldDTO, error) {
	holds, err := s.holds.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return toHoldDTOs(holds), nil
}

// Checkout turns the session's holds into one booking. The response is the
// only place the manage token is returned.
func (s *ReservationService) Checkout(ctx context.Context, sessionID string, req CheckoutRequest) (*BookingDTO, error) {
	bk, err := s.consolidator.Finalize(ctx, sessionID, req.Contact)
	if err != nil {
		if de, ok := domain.AsError(err); ok && de.Kind == domain.KindConsistency {
			s.logger.Info("checkout rejected on re-check", zap.Any("rooms", de.Rooms))
		}
		return nil, err
	}

	s.logger.Info("booking confirmed",
		zap.String("booking_id", bk.ID().String()),
		zap.String("booking_number", bk.BookingNumber()),
		zap.Strings("room_ids", bk.RoomIDs()),
		zap.Int64("total_price", bk.TotalPrice()),
	)
	s.events.publish(ctx, messages.BookingConfirmed, bk.ID().String(), messages.BookingConfirmedEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		RoomIDs:       bk.RoomIDs(),
		WholeProperty: bk.WholeProperty(),
		GuestCount:    bk.Guests().Count(),
		TotalPrice:    bk.TotalPrice(),
		Currency:      bk.Currency(),
		ContactEmail:  bk.Contact().Email,
		OccurredAt:    bk.CreatedAt(),
	})

	dto := toBookingDTO(bk, true)
	return &dto, nil
}

// SeasonCheck reports what the season gate would decide for a request now.
func (s *ReservationService) SeasonCheck(ctx context.Context, req SeasonCheckRequest) (*SeasonCheckDTO, error) {
	st, err := stayOf(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}
	rt := reservation.RequestSingleRoom
	if req.Bulk {
		rt = reservation.RequestBulk
	}

	d := s.gate.Evaluate(st, rt, req.AccessCode, s.clock.Now())
	dto := &SeasonCheckDTO{Outcome: d.Outcome, Reason: string(d.Reason)}
	if d.Season != nil {
		dto.Season = d.Season.Name
		cutoff := s.clock.CutoffFor(*d.Season)
		dto.Cutoff = &cutoff
	}
	return dto, nil
}

// Quote prices a stay without holding anything.
func (s *ReservationService) Quote(ctx context.Context, req QuoteRequest) (*QuoteDTO, error) {
	st, err := stayOf(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}
	roster := bookingDomain.Roster(req.Guests)

	if req.RoomID == "" {
		total, err := s.pricing.PriceBulk(st.Nights(), roster, s.bulkBaseFee, s.catalog.BulkRates)
		if err != nil {
			return nil, err
		}
		return &QuoteDTO{
			WholeProperty: true,
			Nights:        st.Nights(),
			GuestCount:    roster.Count(),
			Total:         total,
			Currency:      s.catalog.Currency,
		}, nil
	}

	room, ok := s.catalog.Room(req.RoomID)
	if !ok {
		return nil, domain.NewNotFoundError("room", req.RoomID)
	}
	if roster.Count() > room.Capacity {
		return nil, domain.NewCapacityError(room.ID, roster.Count(), room.Capacity)
	}
	total, err := s.pricing.Price(st.Nights(), roster, room.Rates)
	if err != nil {
		return nil, err
	}
	return &QuoteDTO{
		RoomID:     room.ID,
		Nights:     st.Nights(),
		GuestCount: roster.Count(),
		Total:      total,
		Currency:   s.catalog.Currency,
	}, nil
}

func (s *ReservationService) findHold(ctx context.Context, sessionID string, holdID uuid.UUID) (*hold.Hold, error) {
	holds, err := s.holds.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, h := range holds {
		if h.ID == holdID {
			return h, nil
		}
	}
	return nil, domain.NewNotFoundError("hold", holdID.String())
}

func (s *ReservationService) publishHoldPlaced(ctx context.Context, h *hold.Hold) {
	s.events.publish(ctx, messages.HoldPlaced, h.RoomID, messages.HoldPlacedEvent{
		HoldID:     h.ID,
		RoomID:     h.RoomID,
		CheckIn:    h.Stay.Start.String(),
		CheckOut:   h.Stay.End.String(),
		BulkGroup:  h.BulkGroup,
		ExpiresAt:  h.ExpiresAt,
		OccurredAt: h.CreatedAt,
	})
}

func stayOf(checkIn, checkOut stay.Date) (stay.Range, error) {
	st, err := stay.NewRange(checkIn, checkOut)
	if err != nil {
		return stay.Range{}, domain.NewValidationError(err.Error())
	}
	return st, nil
}

// maxWindowDays bounds availability queries.
const maxWindowDays = 366

func inclusiveWindow(from, to stay.Date) (stay.Range, error) {
	if from.IsZero() || to.IsZero() {
		return stay.Range{}, domain.NewValidationError("from and to dates are required")
	}
	if to.Before(from) {
		return stay.Range{}, domain.NewValidationError("to must not be before from")
	}
	window := stay.Range{Start: from, End: to.AddDays(1)}
	if window.Nights() > maxWindowDays {
		return stay.Range{}, domain.NewValidationError("availability window is limited to one year")
	}
	return window, nil
}

// eventPublisher wraps a kafka.Publisher. Publishing failures are logged
// and never fail the request that caused them.
type eventPublisher struct {
	producer kafka.Publisher
	topic    string
	logger   *zap.Logger
}

func newEventPublisher(producer kafka.Publisher, topic string, logger *zap.Logger) *eventPublisher {
	if producer == nil {
		producer = kafka.NopPublisher{}
	}
	if topic == "" {
		topic = messages.TopicReservationEvents
	}
	return &eventPublisher{producer: producer, topic: topic, logger: logger}
}

func (p *eventPublisher) publish(ctx context.Context, eventType, key string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(messages.Source, eventType, data)
	if err != nil {
		p.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	// The publish outlives the request context.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := p.producer.PublishEvent(pubCtx, p.topic, key, cloudEvent); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("topic", p.topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
