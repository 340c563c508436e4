package uow

import (
	"context"
	"errors"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

type ctxKey struct{}

// ContextWithUnitOfWork stores the provided unit of work in context.
func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, ctxKey{}, unit)
}

// FromContext retrieves a unit of work from context if present.
func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(ctxKey{}).(UnitOfWork)
	return unit, ok
}

// sessionInjector is implemented by units whose repositories read a driver
// session (mongo, gorm) from ctx rather than holding it.
type sessionInjector interface {
	InjectContext(context.Context) context.Context
}

// Begin starts a unit and returns the context every repository call of that
// unit must use.
func Begin(ctx context.Context, factory UoWFactory, opts TxOptions) (UnitOfWork, context.Context, error) {
	if factory == nil {
		return nil, ctx, ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return nil, ctx, err
	}
	if injector, ok := unit.(sessionInjector); ok {
		ctx = injector.InjectContext(ctx)
	}
	return unit, ContextWithUnitOfWork(ctx, unit), nil
}

// Within runs fn in the unit already carried by ctx. Without one it begins a
// unit, commits it when fn succeeds and rolls it back otherwise.
func Within(ctx context.Context, factory UoWFactory, opts TxOptions, fn func(ctx context.Context, unit UnitOfWork) error) error {
	if unit, ok := FromContext(ctx); ok {
		return fn(ctx, unit)
	}
	unit, execCtx, err := Begin(ctx, factory, opts)
	if err != nil {
		return err
	}
	if err := fn(execCtx, unit); err != nil {
		_ = unit.Rollback(execCtx)
		return err
	}
	if err := unit.Commit(execCtx); err != nil {
		_ = unit.Rollback(execCtx)
		return err
	}
	return nil
}
