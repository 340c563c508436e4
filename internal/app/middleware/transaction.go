package middleware

import (
	"context"

	"staybook/internal/app/commands"
	"staybook/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// Transaction wraps every command in its own unit of work. Handlers below it
// find the unit with uow.FromContext; it commits only when the handler
// succeeds.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			var res any
			err := uow.Within(ctx, factory, opts, func(ctx context.Context, _ uow.UnitOfWork) error {
				var err error
				res, err = nextFn(ctx, cmd)
				return err
			})
			if err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}
