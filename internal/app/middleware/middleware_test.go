package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/commands"
	"staybook/internal/app/outbox"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
)

type echoResult struct {
	Value string `json:"value"`
}

type echoCommand struct {
	IdemKey string
	Value   string `validate:"required"`
}

func (echoCommand) Key() string              { return "test.echo" }
func (c echoCommand) IdempotencyKey() string { return c.IdemKey }
func (echoCommand) ResultPrototype() any     { return &echoResult{} }

type plainCommand struct{}

func (plainCommand) Key() string { return "test.plain" }

type memoryIdempotency struct {
	mu   sync.Mutex
	recs map[string]IdempotencyRecord
}

func (m *memoryIdempotency) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[key]
	return rec, ok, nil
}

func (m *memoryIdempotency) Save(_ context.Context, rec IdempotencyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recs == nil {
		m.recs = make(map[string]IdempotencyRecord)
	}
	m.recs[rec.Key] = rec
	return nil
}

func countingBus(calls *int, fail *error) *commands.InMemoryBus {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler(bus, echoCommand{}.Key(), commands.HandlerFunc[echoCommand, *echoResult](
		func(ctx context.Context, cmd echoCommand) (*echoResult, error) {
			*calls++
			if *fail != nil {
				return nil, *fail
			}
			return &echoResult{Value: cmd.Value}, nil
		}))
	return bus
}

func TestIdempotencyReplaysStoredResult(t *testing.T) {
	var (
		calls int
		fail  error
	)
	store := &memoryIdempotency{}
	bus := ChainCommands(countingBus(&calls, &fail), Idempotency(store, nil))
	ctx := context.Background()

	first, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{IdemKey: "k1", Value: "a"})
	require.NoError(t, err)
	second, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{IdemKey: "k1", Value: "b"})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, "a", first.Value)
	assert.Equal(t, first, second)
}

func TestIdempotencyDoesNotRememberFailures(t *testing.T) {
	var calls int
	fail := domainbooking.ErrBookingConflict
	store := &memoryIdempotency{}
	bus := ChainCommands(countingBus(&calls, &fail), Idempotency(store, nil))
	ctx := context.Background()

	_, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{IdemKey: "k2", Value: "a"})
	assert.ErrorIs(t, err, domainbooking.ErrBookingConflict)

	fail = nil
	res, err := commands.Dispatch[echoCommand, *echoResult](ctx, bus, echoCommand{IdemKey: "k2", Value: "a"})
	require.NoError(t, err)
	assert.Equal(t, "a", res.Value)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyWithoutKeyAlwaysRuns(t *testing.T) {
	var (
		calls int
		fail  error
	)
	bus := ChainCommands(countingBus(&calls, &fail), Idempotency(&memoryIdempotency{}, nil))
	for i := 0; i < 3; i++ {
		_, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{Value: "x"})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
}

func TestValidationRejectsBeforeHandler(t *testing.T) {
	var (
		calls int
		fail  error
	)
	bus := ChainCommands(countingBus(&calls, &fail), Validation(NewStructValidator()))

	_, err := bus.Dispatch(context.Background(), echoCommand{})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "Value")
	assert.Zero(t, calls)
}

type fakeUnit struct {
	committed  bool
	rolledBack bool
}

func (u *fakeUnit) Properties() domainproperty.Repository { return nil }
func (u *fakeUnit) Bookings() domainbooking.Repository    { return nil }

func (u *fakeUnit) Commit(context.Context) error {
	u.committed = true
	return nil
}

func (u *fakeUnit) Rollback(context.Context) error {
	u.rolledBack = true
	return nil
}

type fakeFactory struct {
	units []*fakeUnit
	opts  []uow.TxOptions
}

func (f *fakeFactory) Begin(_ context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	u := &fakeUnit{}
	f.units = append(f.units, u)
	f.opts = append(f.opts, opts)
	return u, nil
}

func TestTransactionCommitsOrRollsBack(t *testing.T) {
	factory := &fakeFactory{}
	var sawUnit bool
	fail := errors.New("boom")
	shouldFail := false

	base := commands.NewInMemoryBus()
	commands.RegisterHandler(base, plainCommand{}.Key(), commands.HandlerFunc[plainCommand, string](
		func(ctx context.Context, _ plainCommand) (string, error) {
			_, sawUnit = uow.FromContext(ctx)
			if shouldFail {
				return "", fail
			}
			return "ok", nil
		}))
	bus := ChainCommands(base, Transaction(factory, func(commands.Command) uow.TxOptions {
		return uow.TxOptions{ReadOnly: false}
	}))

	_, err := bus.Dispatch(context.Background(), plainCommand{})
	require.NoError(t, err)
	assert.True(t, sawUnit)
	require.Len(t, factory.units, 1)
	assert.True(t, factory.units[0].committed)
	assert.False(t, factory.units[0].rolledBack)

	shouldFail = true
	_, err = bus.Dispatch(context.Background(), plainCommand{})
	assert.ErrorIs(t, err, fail)
	require.Len(t, factory.units, 2)
	assert.False(t, factory.units[1].committed)
	assert.True(t, factory.units[1].rolledBack)
}

type flakyOutbox struct {
	flushes  int
	flushErr error
}

func (o *flakyOutbox) Add(context.Context, outbox.EventRecord) error { return nil }
func (o *flakyOutbox) Flush(context.Context) error {
	o.flushes++
	return o.flushErr
}

func TestOutboxFlushFailureKeepsResult(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	box := &flakyOutbox{flushErr: errors.New("broker unavailable")}

	base := commands.NewInMemoryBus()
	commands.RegisterHandler(base, plainCommand{}.Key(), commands.HandlerFunc[plainCommand, string](
		func(context.Context, plainCommand) (string, error) { return "done", nil }))
	bus := ChainCommands(base, OutboxFlush(box, logger))

	res, err := commands.Dispatch[plainCommand, string](context.Background(), bus, plainCommand{})
	require.NoError(t, err)
	assert.Equal(t, "done", res)
	assert.Equal(t, 1, box.flushes)
	assert.Contains(t, buf.String(), "outbox flush failed")
}

func TestOutboxFlushSkippedOnFailure(t *testing.T) {
	box := &flakyOutbox{}
	base := commands.NewInMemoryBus()
	commands.RegisterHandler(base, plainCommand{}.Key(), commands.HandlerFunc[plainCommand, string](
		func(context.Context, plainCommand) (string, error) { return "", domainbooking.ErrInvalidTransition }))
	bus := ChainCommands(base, OutboxFlush(box, nil))

	_, err := bus.Dispatch(context.Background(), plainCommand{})
	assert.ErrorIs(t, err, domainbooking.ErrInvalidTransition)
	assert.Zero(t, box.flushes)
}
