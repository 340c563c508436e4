package main

import (
	"context"
	"database/sql"

	domainproperty "staybook/internal/domain/property"
	"staybook/internal/infra/config"
	mongodb "staybook/internal/infra/db/mongo"
	"staybook/internal/infra/db/postgres"
	"staybook/internal/infra/inbox"
	infraoutbox "staybook/internal/infra/outbox"
	"staybook/internal/infra/storage/memory"
)

func openMemory(cfg config.Config, producer infraoutbox.Producer) storage {
	store := memory.NewStore()
	box := memory.NewOutbox(producer)
	box.TopicPrefix = cfg.KafkaTopicPrefix
	return storage{
		factory:     memory.Factory{Store: store, Outbox: box},
		outbox:      box,
		idempotency: memory.NewIdempotencyStore(cfg.IdempotencyTTL),
		inbox:       inbox.NewMemoryStore(),
		seed: func(_ context.Context, p *domainproperty.Property) error {
			return store.SeedProperty(*p)
		},
	}
}

func openMongo(cfg config.Config) (storage, error) {
	client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return storage{}, err
	}
	properties := mongodb.NewPropertyRepository(client.DB)
	box := infraoutbox.NewStore(client.DB)
	return storage{
		factory: mongodb.Factory{
			DB:           client.DB,
			PropertyRepo: properties,
			BookingRepo:  mongodb.NewBookingRepository(client.DB),
		},
		outbox:      box,
		claims:      box,
		idempotency: mongodb.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL),
		inbox:       inbox.NewStore(client.DB, cfg.ConsumerGroup),
		seed:        properties.Save,
		ping:        client.Ping,
		close: func() error {
			return client.DB.Client().Disconnect(context.Background())
		},
	}, nil
}

func openPostgres(cfg config.Config) (storage, error) {
	db, err := postgres.Open(cfg.PostgresDSN, postgres.PoolConfig{MaxOpenConns: 20, MaxIdleConns: 5})
	if err != nil {
		return storage{}, err
	}
	if cfg.AutoMigrate {
		if err := postgres.Migrate(db); err != nil {
			return storage{}, err
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return storage{}, err
	}
	box := postgres.NewOutboxStore(db)
	properties := postgres.NewPropertyRepository(db)
	return storage{
		factory:     postgres.Factory{DB: db, Isolation: sql.LevelSerializable},
		outbox:      box,
		claims:      box,
		idempotency: postgres.NewIdempotencyStore(db, cfg.IdempotencyTTL),
		inbox:       postgres.NewInboxStore(db, cfg.ConsumerGroup),
		seed:        properties.Save,
		ping:        sqlDB.PingContext,
		close:       sqlDB.Close,
	}, nil
}
