package support

import (
	"context"

	"staybook/internal/app/uow"
)

// BeginReadOnlyUnit reuses the unit carried by ctx or opens a read-only one.
// The returned release func is never nil.
func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	if unit, ok := uow.FromContext(ctx); ok {
		return unit, ctx, func() {}, nil
	}
	unit, execCtx, err := uow.Begin(ctx, factory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	return unit, execCtx, func() { _ = unit.Rollback(execCtx) }, nil
}
