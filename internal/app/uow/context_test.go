package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
)

type sessionKey struct{}

type recordingUnit struct {
	committed  bool
	rolledBack bool
}

func (u *recordingUnit) Properties() domainproperty.Repository { return nil }
func (u *recordingUnit) Bookings() domainbooking.Repository    { return nil }
func (u *recordingUnit) Commit(context.Context) error {
	u.committed = true
	return nil
}
func (u *recordingUnit) Rollback(context.Context) error {
	u.rolledBack = true
	return nil
}
func (u *recordingUnit) InjectContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, sessionKey{}, "session")
}

type recordingFactory struct {
	begun []*recordingUnit
}

func (f *recordingFactory) Begin(context.Context, TxOptions) (UnitOfWork, error) {
	u := &recordingUnit{}
	f.begun = append(f.begun, u)
	return u, nil
}

func TestBeginInjectsSession(t *testing.T) {
	unit, ctx, err := Begin(context.Background(), &recordingFactory{}, TxOptions{})
	require.NoError(t, err)
	assert.Equal(t, "session", ctx.Value(sessionKey{}))
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, unit, got)
}

func TestBeginWithoutFactory(t *testing.T) {
	_, _, err := Begin(context.Background(), nil, TxOptions{})
	assert.ErrorIs(t, err, ErrUnitOfWorkMissing)
}

func TestWithinCommitsOrRollsBack(t *testing.T) {
	f := &recordingFactory{}
	require.NoError(t, Within(context.Background(), f, TxOptions{}, func(context.Context, UnitOfWork) error { return nil }))

	boom := errors.New("boom")
	err := Within(context.Background(), f, TxOptions{}, func(context.Context, UnitOfWork) error { return boom })
	assert.ErrorIs(t, err, boom)

	require.Len(t, f.begun, 2)
	assert.True(t, f.begun[0].committed)
	assert.False(t, f.begun[0].rolledBack)
	assert.False(t, f.begun[1].committed)
	assert.True(t, f.begun[1].rolledBack)
}

func TestWithinReusesAmbientUnit(t *testing.T) {
	f := &recordingFactory{}
	outer := &recordingUnit{}
	ctx := ContextWithUnitOfWork(context.Background(), outer)

	var seen UnitOfWork
	require.NoError(t, Within(ctx, f, TxOptions{}, func(_ context.Context, unit UnitOfWork) error {
		seen = unit
		return nil
	}))
	assert.Same(t, outer, seen)
	assert.Empty(t, f.begun)
	assert.False(t, outer.committed)
}
