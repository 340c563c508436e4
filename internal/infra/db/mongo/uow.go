package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainproperty "staybook/internal/domain/property"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	PropertyRepo domainproperty.Repository
	BookingRepo  domainbooking.Repository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction. Transactions use snapshot reads
// so the availability check and the insert see one consistent view.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if opts.ReadOnly {
		txnOpts = options.Transaction().SetReadConcern(readconcern.Snapshot())
	}
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		session:    session,
		properties: f.PropertyRepo,
		bookings:   f.BookingRepo,
	}, nil
}

type Unit struct {
	session mongo.Session

	properties domainproperty.Repository
	bookings   domainbooking.Repository
}

func (u *Unit) Properties() domainproperty.Repository {
	return u.properties
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.bookings
}

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if err := u.session.CommitTransaction(ctx); err != nil {
		if isWriteConflict(err) {
			return fmt.Errorf("%w: %w", domainbooking.ErrConcurrentUpdate, err)
		}
		return err
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

const writeConflictCode = 112

// isWriteConflict detects a transaction aborted because another transaction
// touched the same document first.
func isWriteConflict(err error) bool {
	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorCode(writeConflictCode) || se.HasErrorLabel("TransientTransactionError") {
			return true
		}
	}
	return false
}
