package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"staybook/internal/app/middleware"
	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainpricing "staybook/internal/domain/pricing"
	domainproperty "staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := OpenDialector(sqlite.Open(dsn))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, Migrate(db))
	return db
}

func testBooking(t *testing.T, id, checkIn, checkOut string) *domainbooking.Booking {
	t.Helper()
	dr := daterange.MustParse(checkIn, checkOut)
	nightly := money.Must(12000, "EUR")
	subtotal, err := nightly.Multiply(int64(dr.Nights()))
	require.NoError(t, err)
	fee, err := subtotal.MulRate(money.MustRate("0.1"))
	require.NoError(t, err)
	total, err := subtotal.Add(fee)
	require.NoError(t, err)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:          domainbooking.ID(id),
		PropertyID:  "prop-1",
		GuestID:     "guest-1",
		Range:       dr,
		GuestsCount: 2,
		Price: domainpricing.Breakdown{
			PricePerNight: nightly,
			Nights:        dr.Nights(),
			Subtotal:      subtotal,
			CleaningFee:   money.Zero("EUR"),
			ServiceFee:    fee,
			Total:         total,
		},
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	b.ClearEvents()
	return b
}

func inUnit(t *testing.T, f Factory, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	t.Helper()
	ctx := context.Background()
	unit, err := f.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	if err := fn(ctx, unit); err != nil {
		require.NoError(t, unit.Rollback(ctx))
		return err
	}
	return unit.Commit(ctx)
}

func TestPropertyRepositoryRoundTrip(t *testing.T) {
	f := Factory{DB: openTestDB(t)}
	prop := &domainproperty.Property{
		ID:                "prop-1",
		HostID:            "host-1",
		Title:             "Loft",
		MinimumStayNights: 2,
		MaxGuests:         3,
		PricePerNight:     money.Must(12000, "EUR"),
		CleaningFee:       money.Must(3000, "EUR"),
	}
	require.NoError(t, inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Properties().Save(ctx, prop)
	}))

	prop.PricePerNight = money.Must(15000, "EUR")
	require.NoError(t, inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Properties().Save(ctx, prop)
	}))

	require.NoError(t, inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		got, err := unit.Properties().ByID(ctx, "prop-1")
		require.NoError(t, err)
		assert.Equal(t, int64(15000), got.PricePerNight.Amount)
		assert.Equal(t, "EUR", got.CleaningFee.Currency)
		assert.Equal(t, 2, got.MinimumStayNights)

		_, err = unit.Properties().ByID(ctx, "nope")
		assert.ErrorIs(t, err, domainproperty.ErrPropertyNotFound)
		return nil
	}))
}

func TestBookingRepositoryInsertAndOverlap(t *testing.T) {
	f := Factory{DB: openTestDB(t)}

	require.NoError(t, inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Bookings().Insert(ctx, testBooking(t, "b1", "2024-06-01", "2024-06-05"))
	}))

	err := inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Bookings().Insert(ctx, testBooking(t, "b2", "2024-06-04", "2024-06-07"))
	})
	assert.ErrorIs(t, err, domainbooking.ErrBookingConflict)

	require.NoError(t, inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Bookings().Insert(ctx, testBooking(t, "b3", "2024-06-05", "2024-06-07"))
	}), "back-to-back stays do not overlap")

	require.NoError(t, inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		list, err := unit.Bookings().ListByProperty(ctx, "prop-1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, domainbooking.ID("b1"), list[0].ID)
		assert.Equal(t, daterange.MustParse("2024-06-01", "2024-06-05"), list[0].Range)
		assert.Equal(t, int64(52800), list[0].Price.Total.Amount)
		assert.Equal(t, int64(1), list[0].Version)
		return nil
	}))
}

func TestBookingRepositoryListMapsSerializationFailureInWriteUnit(t *testing.T) {
	f := Factory{DB: openTestDB(t)}
	ctx := context.Background()
	serialization := fmt.Errorf("select bookings: %w", &pgconn.PgError{Code: codeSerializationFailure})

	// one connection: the units run one after the other
	unit, err := f.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	write := unit.Bookings().(*BookingRepository)
	assert.ErrorIs(t, write.mapReadError(serialization), domainbooking.ErrBookingConflict)
	require.NoError(t, unit.Rollback(ctx))

	ro, err := f.Begin(ctx, uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	read := ro.Bookings().(*BookingRepository)
	defer func() { _ = ro.Rollback(ctx) }()
	got := read.mapReadError(serialization)
	assert.NotErrorIs(t, got, domainbooking.ErrBookingConflict)
	assert.Equal(t, serialization, got)

	assert.Equal(t, serialization, NewBookingRepository(f.DB).mapReadError(serialization))
}

func TestBookingRepositoryOptimisticUpdate(t *testing.T) {
	f := Factory{DB: openTestDB(t)}
	now := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	b := testBooking(t, "b1", "2024-06-01", "2024-06-05")
	require.NoError(t, inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Bookings().Insert(ctx, b)
	}))

	stale := *b
	require.NoError(t, b.Confirm(now))
	require.NoError(t, inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Bookings().Update(ctx, b)
	}))
	assert.Equal(t, int64(2), b.Version)

	require.NoError(t, stale.Reject("double", now))
	err := inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Bookings().Update(ctx, &stale)
	})
	assert.ErrorIs(t, err, domainbooking.ErrConcurrentUpdate)

	missing := testBooking(t, "ghost", "2024-07-01", "2024-07-02")
	err = inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Bookings().Update(ctx, missing)
	})
	assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)

	require.NoError(t, inUnit(t, f, func(ctx context.Context, unit uow.UnitOfWork) error {
		got, err := unit.Bookings().ByID(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, domainbooking.StatusConfirmed, got.Status)
		require.NotNil(t, got.ConfirmedAt)
		assert.True(t, now.Equal(*got.ConfirmedAt))

		due, err := unit.Bookings().ListDueForCompletion(ctx, time.Date(2024, 6, 6, 0, 0, 0, 0, time.UTC), 10)
		require.NoError(t, err)
		assert.Len(t, due, 1)
		return nil
	}))
}

func TestOutboxStoreClaimLifecycle(t *testing.T) {
	db := openTestDB(t)
	store := NewOutboxStore(db)
	f := Factory{DB: db}
	ctx := context.Background()

	unit, err := f.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	txCtx := unit.(*Unit).InjectContext(ctx)
	require.NoError(t, store.Add(txCtx, appoutbox.EventRecord{
		ID: "e1", Name: "booking.requested", Payload: []byte(`{"booking_id":"b1"}`), Aggregate: "b1",
		OccurredAt: time.Now().UTC(), Headers: map[string]string{"traceparent": "t"},
	}))
	require.NoError(t, unit.Rollback(ctx))

	env, err := store.Claim(ctx, "w1")
	require.NoError(t, err)
	assert.Nil(t, env, "rolled back records are never claimed")

	unit, err = f.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	txCtx = unit.(*Unit).InjectContext(ctx)
	require.NoError(t, store.Add(txCtx, appoutbox.EventRecord{
		ID: "e2", Name: "booking.confirmed", Payload: []byte(`{"booking_id":"b1"}`), Aggregate: "b1",
		OccurredAt: time.Now().UTC(), Headers: map[string]string{"traceparent": "t"},
	}))
	require.NoError(t, unit.Commit(ctx))

	env, err = store.Claim(ctx, "w1")
	require.NoError(t, err)
	require.NotNil(t, env)
	assert.Equal(t, "e2", env.ID)
	assert.Equal(t, "t", env.Headers["traceparent"])

	again, err := store.Claim(ctx, "w2")
	require.NoError(t, err)
	assert.Nil(t, again, "claimed records are leased")

	require.NoError(t, store.MarkFailed(ctx, "e2", time.Now().Add(-time.Second), "broker down"))
	retry, err := store.Claim(ctx, "w2")
	require.NoError(t, err)
	require.NotNil(t, retry)
	assert.Equal(t, 1, retry.Attempts)

	require.NoError(t, store.MarkSent(ctx, "e2"))
	done, err := store.Claim(ctx, "w3")
	require.NoError(t, err)
	assert.Nil(t, done)
}

func TestIdempotencyStoreTTL(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewIdempotencyStore(db, time.Hour)

	_, found, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Save(ctx, middleware.IdempotencyRecord{Key: "k1", Payload: []byte(`{"id":"b1"}`), OccurredAt: time.Now()}))
	rec, found, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"id":"b1"}`, string(rec.Payload))

	require.NoError(t, db.Model(&idempotencyRecord{}).Where("key = ?", "k1").
		Update("created_at", time.Now().UTC().Add(-2*time.Hour)).Error)
	_, found, err = store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found, "expired results are ignored")
}

func TestInboxStoreSeenAndRelease(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	payments := NewInboxStore(db, "payments")
	other := NewInboxStore(db, "audit")

	seen, err := payments.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)
	seen, err = payments.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = other.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen, "consumers track events independently")

	require.NoError(t, payments.Release(ctx, "evt-1"))
	seen, err = payments.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)
}
