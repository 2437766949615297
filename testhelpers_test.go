//go:build integration

package main_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/Kilat-Lodge/service-reservation/internal/application"
	bookingDomain "github.com/Kilat-Lodge/service-reservation/internal/domain/booking"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/reservation"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/stay"
	reservationEvents "github.com/Kilat-Lodge/service-reservation/internal/events"
	"github.com/Kilat-Lodge/service-reservation/internal/messages"
	"github.com/Kilat-Lodge/service-reservation/internal/platform/kafka"
	"github.com/Kilat-Lodge/service-reservation/internal/repository"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// reservationStack holds wired-up reservation service components.
type reservationStack struct {
	Reservations    *application.ReservationService
	Bookings        *application.BookingService
	Holds           *reservation.HoldStore
	Clock           *reservation.FakeClock
	Consumer        *reservationEvents.PaymentEventConsumer
	CleanupProducer func()
}

// setupPostgres starts a PostgreSQL testcontainer and returns a migrated GORM DB.
func setupPostgres(t *testing.T) (*gorm.DB, func()) {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_reservation",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_reservation sslmode=disable TimeZone=UTC", pgHost, pgPort.Port())

	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, db.AutoMigrate(repository.Models()...))

	return db, func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}
}

// setupContainers starts PostgreSQL and Kafka testcontainers.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	db, cleanupDB := setupPostgres(t)

	// confluent-local runs KRaft natively.
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers, messages.TopicReservationEvents, messages.TopicPaymentEvents)

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup: func() {
			if err := kafkaContainer.Terminate(ctx); err != nil {
				t.Logf("failed to terminate Kafka container: %v", err)
			}
			cleanupDB()
		},
	}
}

func testCatalog(t *testing.T) *property.Catalog {
	t.Helper()
	rates := property.RateCard{property.TierInternal: {Base: 298, Adult: 49, Child: 24}}
	catalog, err := property.NewCatalog("EUR", []property.Room{
		{ID: "alder", Name: "Alder", Capacity: 4, Rates: rates},
		{ID: "birch", Name: "Birch", Capacity: 2, Rates: rates},
	}, property.RateCard{property.TierInternal: {Adult: 39, Child: 19}}, nil)
	require.NoError(t, err)
	return catalog
}

// setupReservationStack wires the reservation core onto PostgreSQL. A nil
// brokers slice publishes nothing and starts no consumer.
func setupReservationStack(t *testing.T, db *gorm.DB, brokers []string, now time.Time) *reservationStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	ctx := context.Background()
	catalog := testCatalog(t)

	store := repository.NewGormStore(db)
	require.NoError(t, store.EnsureRooms(ctx, catalog.RoomIDs()))

	var producer kafka.Publisher = kafka.NopPublisher{}
	if len(brokers) > 0 {
		producer = kafka.NewBreakerPublisher(kafka.NewProducer(brokers, logger), logger)
	}

	fake := reservation.NewFakeClock(now)
	clock := reservation.NewClockPolicy(fake, reservation.DefaultCutoffRule, time.UTC)
	limits := bookingDomain.GuestLimits{Floor: 2, Ceiling: 6}
	pricing := bookingDomain.NewStandardPricingStrategy(bookingDomain.BaseTierCheapest, limits)
	resolver := reservation.NewConflictResolver(clock)
	gate := reservation.NewSeasonGate(catalog.Seasons, clock)
	holds := reservation.NewHoldStore(store, catalog, resolver, clock, reservation.HoldPolicy{Bulk: limits}, logger)

	reservations := application.NewReservationService(application.ReservationDeps{
		Catalog:      catalog,
		Index:        reservation.NewAvailabilityIndex(store, catalog, clock),
		Holds:        holds,
		Gate:         gate,
		Consolidator: reservation.NewBookingConsolidator(store, catalog, resolver, gate, pricing, 900, clock),
		Pricing:      pricing,
		BulkBaseFee:  900,
		Clock:        clock,
		Producer:     producer,
	}, logger)
	bookings := application.NewBookingService(
		repository.NewGormBookingRepository(db),
		repository.NewGormBlockRepository(db),
		catalog, clock, producer, "", logger,
	)

	stack := &reservationStack{
		Reservations:    reservations,
		Bookings:        bookings,
		Holds:           holds,
		Clock:           fake,
		CleanupProducer: func() { _ = producer.Close() },
	}
	if len(brokers) > 0 {
		groupID := fmt.Sprintf("test-reservation-%s", uuid.New().String()[:8])
		stack.Consumer = reservationEvents.NewPaymentEventConsumer(brokers, groupID, "", bookings, logger)
	}
	return stack
}

func date(s string) stay.Date { return stay.MustParseDate(s) }

func adults(n int) []bookingDomain.Guest {
	out := make([]bookingDomain.Guest, n)
	for i := range out {
		out[i] = bookingDomain.Guest{AgeClass: bookingDomain.AgeAdult, Tier: property.TierInternal}
	}
	return out
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType, key string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, key, ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForPaid polls the bookings table until the booking is paid.
func waitForPaid(t *testing.T, db *gorm.DB, bookingID uuid.UUID, timeout time.Duration) repository.BookingModel {
	t.Helper()
	var result repository.BookingModel
	require.Eventually(t, func() bool {
		var model repository.BookingModel
		if err := db.Where("id = ?", bookingID).First(&model).Error; err != nil {
			return false
		}
		if model.Paid {
			result = model
			return true
		}
		return false
	}, timeout, 200*time.Millisecond, "booking %s was not marked paid", bookingID)
	return result
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		var ce kafka.CloudEvent
		if err := json.Unmarshal(msg.Value, &ce); err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
