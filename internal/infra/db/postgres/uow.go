package postgres

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"

	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
)

var ErrUnitOfWorkNotConfigured = errors.New("postgres: unit of work factory missing database")

// Factory begins gorm transactions. Write units run at Isolation; PostgreSQL
// deployments use serializable.
type Factory struct {
	DB        *gorm.DB
	Isolation sql.IsolationLevel
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	txOpts := &sql.TxOptions{Isolation: f.Isolation, ReadOnly: opts.ReadOnly}
	if !isPostgres(f.DB) {
		// sqlite rejects non-default isolation and read-only transactions
		txOpts = &sql.TxOptions{}
	}
	tx := f.DB.WithContext(ctx).Begin(txOpts)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &Unit{tx: tx, readOnly: opts.ReadOnly}, nil
}

type Unit struct {
	tx       *gorm.DB
	readOnly bool
	inserted bool
	done     bool
}

func (u *Unit) Properties() domainproperty.Repository {
	return &PropertyRepository{db: u.tx}
}

func (u *Unit) Bookings() domainbooking.Repository {
	return &BookingRepository{db: u.tx, unit: u}
}

func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	err := u.tx.Commit().Error
	if err == nil {
		return nil
	}
	if u.inserted {
		return mapInsertError(err)
	}
	return mapUpdateError(err)
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	return u.tx.Rollback().Error
}

// InjectContext exposes the transaction to stores that only receive ctx, such as the outbox.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, txKey{}, u.tx)
}

type txKey struct{}

func txFromContext(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok && tx != nil
}
