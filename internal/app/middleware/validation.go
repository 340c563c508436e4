package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"staybook/internal/app/commands"
	"staybook/internal/app/queries"
)

var ErrValidation = errors.New("middleware: validation failed")

type Validator interface {
	Validate(ctx context.Context, message any) error
}

// StructValidator checks `validate` struct tags on commands and queries.
type StructValidator struct {
	validate *validator.Validate
}

func NewStructValidator() *StructValidator {
	return &StructValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (v *StructValidator) Validate(ctx context.Context, message any) error {
	if message == nil {
		return nil
	}
	err := v.validate.StructCtx(ctx, message)
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		// not a struct; nothing to check
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			parts = append(parts, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(parts, ", "))
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

func Validation(v Validator) CommandMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := v.Validate(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryValidation(v Validator) QueryMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := v.Validate(ctx, q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}
