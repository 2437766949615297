package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kilat-Lodge/service-reservation/internal/domain"
	bookingDomain "github.com/Kilat-Lodge/service-reservation/internal/domain/booking"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/reservation"
	"github.com/Kilat-Lodge/service-reservation/internal/messages"
	"github.com/Kilat-Lodge/service-reservation/internal/platform/kafka"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingService manages confirmed bookings and blocks: guest self-service
// through the manage token and the operator surface.
type BookingService struct {
	repo    bookingDomain.BookingRepository
	blocks  property.BlockRepository
	catalog *property.Catalog
	clock   *reservation.ClockPolicy
	events  *eventPublisher
	logger  *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo bookingDomain.BookingRepository,
	blocks property.BlockRepository,
	catalog *property.Catalog,
	clock *reservation.ClockPolicy,
	producer kafka.Publisher,
	topic string,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		repo:    repo,
		blocks:  blocks,
		catalog: catalog,
		clock:   clock,
		events:  newEventPublisher(producer, topic, logger),
		logger:  logger,
	}
}

// GetByToken returns the booking a manage token grants access to.
func (s *BookingService) GetByToken(ctx context.Context, token string) (*BookingDTO, error) {
	bk, err := s.findByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	dto := toBookingDTO(bk, false)
	return &dto, nil
}

// CancelByToken cancels a booking on behalf of its guest.
func (s *BookingService) CancelByToken(ctx context.Context, token, reason string) (*BookingDTO, error) {
	bk, err := s.findByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, bk, reason, false)
}

// CancelBooking cancels a booking on behalf of the operator.
func (s *BookingService) CancelBooking(ctx context.Context, id uuid.UUID, reason string) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, bk, reason, true)
}

// MarkPaid records payment of a booking. Marking a paid booking again
// changes nothing.
func (s *BookingService) MarkPaid(ctx context.Context, id uuid.UUID, reference string) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if bk.Paid() {
		dto := toBookingDTO(bk, false)
		return &dto, nil
	}

	if err := bk.MarkPaid(s.clock.Now()); err != nil {
		return nil, err
	}
	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	s.logger.Info("booking marked paid",
		zap.String("booking_id", bk.ID().String()),
		zap.String("reference", reference),
	)
	s.events.publish(ctx, messages.BookingPaid, bk.ID().String(), messages.BookingPaidEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		Reference:     reference,
		OccurredAt:    *bk.PaidAt(),
	})

	dto := toBookingDTO(bk, false)
	return &dto, nil
}

// ListAllBookings retrieves all bookings with pagination (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, page, limit int) ([]BookingDTO, int64, error) {
	bookings, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk, false)
	}
	return dtos, total, nil
}

// GetBookingStats returns booking counts by status (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (map[string]int64, error) {
	return s.repo.CountByStatus(ctx)
}

// ListBlocks returns every block (admin).
func (s *BookingService) ListBlocks(ctx context.Context) ([]BlockDTO, error) {
	blocks, err := s.blocks.ListBlocks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}
	dtos := make([]BlockDTO, len(blocks))
	for i, b := range blocks {
		dtos[i] = toBlockDTO(b)
	}
	return dtos, nil
}

// CreateBlock closes a room, or every room, for an inclusive interval
// (admin). Existing bookings are not touched.
func (s *BookingService) CreateBlock(ctx context.Context, req CreateBlockRequest) (*BlockDTO, error) {
	roomID := strings.TrimSpace(req.RoomID)
	if roomID != property.AllRooms {
		if _, ok := s.catalog.Room(roomID); !ok {
			return nil, domain.NewNotFoundError("room", roomID)
		}
	}
	block, err := property.NewBlock(roomID, req.Start, req.End, req.Reason, s.clock.Now())
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}
	if err := s.blocks.SaveBlock(ctx, block); err != nil {
		return nil, fmt.Errorf("failed to save block: %w", err)
	}

	s.logger.Info("block created",
		zap.String("block_id", block.ID.String()),
		zap.String("room_id", block.RoomID),
		zap.String("start", block.Start.String()),
		zap.String("end", block.End.String()),
	)
	dto := toBlockDTO(block)
	return &dto, nil
}

// DeleteBlock removes a block (admin).
func (s *BookingService) DeleteBlock(ctx context.Context, id uuid.UUID) error {
	if err := s.blocks.DeleteBlock(ctx, id); err != nil {
		return err
	}
	s.logger.Info("block deleted", zap.String("block_id", id.String()))
	return nil
}

func (s *BookingService) findByToken(ctx context.Context, token string) (*bookingDomain.Booking, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.NewNotFoundError("booking", "for token")
	}
	return s.repo.FindByToken(ctx, token)
}

func (s *BookingService) cancel(ctx context.Context, bk *bookingDomain.Booking, reason string, byOperator bool) (*BookingDTO, error) {
	if err := bk.Cancel(strings.TrimSpace(reason), s.clock.Now()); err != nil {
		return nil, err
	}
	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	s.logger.Info("booking cancelled",
		zap.String("booking_id", bk.ID().String()),
		zap.Bool("by_operator", byOperator),
	)
	s.events.publish(ctx, messages.BookingCancelled, bk.ID().String(), messages.BookingCancelledEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		RoomIDs:       bk.RoomIDs(),
		Reason:        bk.CancelNote(),
		ByOperator:    byOperator,
		OccurredAt:    *bk.CancelledAt(),
	})

	dto := toBookingDTO(bk, false)
	return &dto, nil
}
