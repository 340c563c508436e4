package main

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"staybook/internal/app/commands"
	availabilityapp "staybook/internal/app/handlers/availability"
	bookingapp "staybook/internal/app/handlers/booking"
	"staybook/internal/app/middleware"
	"staybook/internal/app/outbox"
	"staybook/internal/app/payments"
	"staybook/internal/app/queries"
	"staybook/internal/app/schedule"
	bookingsvc "staybook/internal/app/services/booking"
	"staybook/internal/app/uow"
	domainavailability "staybook/internal/domain/availability"
	domainpricing "staybook/internal/domain/pricing"
	domainproperty "staybook/internal/domain/property"
	"staybook/internal/infra/broker/inproc"
	"staybook/internal/infra/broker/kafka"
	"staybook/internal/infra/config"
	redisstore "staybook/internal/infra/db/redis"
	ginserver "staybook/internal/infra/http/gin"
	"staybook/internal/infra/notify"
	"staybook/internal/infra/obs"
	infraoutbox "staybook/internal/infra/outbox"
)

type runner func(ctx context.Context) error

type application struct {
	handlers ginserver.Handlers
	checks   map[string]obs.Check
	runners  map[string]runner
	seed     func(ctx context.Context, p *domainproperty.Property) error
	closers  []func() error
}

// storage is what each storage driver contributes to the application.
type storage struct {
	factory     uow.UoWFactory
	outbox      outbox.Outbox
	claims      infraoutbox.ClaimStore
	idempotency middleware.IdempotencyStore
	inbox       payments.Inbox
	seed        func(ctx context.Context, p *domainproperty.Property) error
	ping        obs.Check
	close       func() error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		checks:  map[string]obs.Check{},
		runners: map[string]runner{},
	}

	producer, err := app.buildProducer(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var st storage
	switch cfg.StorageDriver {
	case config.StorageMongo:
		st, err = openMongo(cfg)
	case config.StoragePostgres:
		st, err = openPostgres(cfg)
	default:
		st = openMemory(cfg, producer)
	}
	if err != nil {
		app.close(logger)
		return nil, fmt.Errorf("open %s storage: %w", cfg.StorageDriver, err)
	}
	if st.close != nil {
		app.closers = append(app.closers, st.close)
	}
	if st.ping != nil {
		app.checks["storage"] = st.ping
	}
	app.seed = st.seed

	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		app.closers = append(app.closers, client.Close)
		store := redisstore.NewIdempotencyStore(client, cfg.IdempotencyTTL)
		st.idempotency = store
		app.checks["redis"] = store.Ping
	}

	service := &bookingsvc.Service{
		UoWFactory: st.factory,
		Calculator: domainpricing.Calculator{},
		Checker:    domainavailability.Checker{},
		Pricing:    domainpricing.Config{ServiceFeeRate: cfg.ServiceFeeRate, Currency: cfg.Currency},
		Outbox:     st.outbox,
		Encoder:    outbox.JSONEventEncoder{},
		Logger:     logger.With("component", "booking"),
	}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, bookingapp.CreateBookingCommand{}.Key(), &bookingapp.CreateBookingHandler{Service: service})
	commands.RegisterHandler(commandBus, bookingapp.UpdateBookingStatusCommand{}.Key(), &bookingapp.UpdateBookingStatusHandler{Service: service})
	commands.RegisterHandler(commandBus, bookingapp.CompleteDueBookingsCommand{}.Key(), &bookingapp.CompleteDueBookingsHandler{Service: service, Logger: logger})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, bookingapp.GetBookingQuery{}.Key(), &bookingapp.GetBookingHandler{UoWFactory: st.factory})
	queries.RegisterHandler(queryBus, bookingapp.ListPropertyBookingsQuery{}.Key(), &bookingapp.ListPropertyBookingsHandler{UoWFactory: st.factory})
	queries.RegisterHandler(queryBus, bookingapp.ListGuestBookingsQuery{}.Key(), &bookingapp.ListGuestBookingsHandler{UoWFactory: st.factory})
	queries.RegisterHandler(queryBus, availabilityapp.CheckAvailabilityQuery{}.Key(), &availabilityapp.CheckAvailabilityHandler{UoWFactory: st.factory})
	queries.RegisterHandler(queryBus, availabilityapp.PropertyCalendarQuery{}.Key(), &availabilityapp.PropertyCalendarHandler{UoWFactory: st.factory})

	validator := middleware.NewStructValidator()
	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Validation(validator),
		middleware.Idempotency(st.idempotency, nil),
		middleware.OutboxFlush(st.outbox, logger),
		middleware.Transaction(st.factory, nil),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus, middleware.QueryValidation(validator))

	app.handlers = ginserver.Handlers{
		Booking:  ginserver.BookingHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware, Logger: logger},
		Property: ginserver.PropertyHandler{Queries: queryBusWithMiddleware, Logger: logger},
	}

	if st.claims != nil {
		worker := &infraoutbox.Worker{
			Store:       st.claims,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
			Logger:      logger.With("component", "outbox"),
		}
		app.runners["outbox-worker"] = worker.Run
	}

	if cfg.KafkaEnabled() {
		handler := &payments.Handler{Commands: commandBusWithMiddleware, Inbox: st.inbox, Logger: logger.With("component", "payments")}
		consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.ConsumerGroup,
			Topics:  []string{cfg.PaymentsTopic},
			Logger:  logger.With("component", "kafka"),
		}, &kafka.PaymentMessageHandler{Payments: handler, Logger: logger})
		if err != nil {
			app.close(logger)
			return nil, fmt.Errorf("kafka consumer: %w", err)
		}
		app.closers = append(app.closers, consumer.Close)
		app.runners["payments-consumer"] = consumer.Run
	}

	sweeper := &schedule.CompletionSweeper{
		Commands:  commandBusWithMiddleware,
		Interval:  cfg.CompletionSweepInterval,
		BatchSize: cfg.CompletionBatchSize,
		Logger:    logger.With("component", "sweeper"),
	}
	app.runners["completion-sweeper"] = sweeper.Run
	return app, nil
}

// buildProducer returns Kafka when brokers are configured. Otherwise events go
// to an in-process bus whose only subscriber logs guest notifications.
func (a *application) buildProducer(ctx context.Context, cfg config.Config, logger *slog.Logger) (infraoutbox.Producer, error) {
	if cfg.KafkaEnabled() {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, "")
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		a.closers = append(a.closers, producer.Close)
		return producer, nil
	}
	bus := inproc.NewBus(logger)
	a.closers = append(a.closers, bus.Close)
	sink := &inproc.NotificationSink{
		Bus:      bus,
		Topic:    infraoutbox.TopicFor(cfg.KafkaTopicPrefix, "booking"),
		Notifier: notify.LogNotifier{Logger: logger.With("component", "notifications")},
		Logger:   logger,
	}
	// subscribed before the server starts; the bus does not retain messages
	if err := sink.Subscribe(ctx); err != nil {
		return nil, fmt.Errorf("notification sink: %w", err)
	}
	a.runners["notification-sink"] = sink.Run
	return bus, nil
}

func (a *application) close(logger *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
