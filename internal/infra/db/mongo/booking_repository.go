package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "staybook/internal/domain/booking"
	domainpricing "staybook/internal/domain/pricing"
	domainproperty "staybook/internal/domain/property"
	domainrange "staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

var blockingStatuses = []string{string(domainbooking.StatusPending), string(domainbooking.StatusConfirmed)}

// BookingRepository stores bookings in agg_booking. Inserts serialise per
// property through a lock document written in the same transaction.
type BookingRepository struct {
	col   *mongo.Collection
	locks *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	col := db.Collection("agg_booking")
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "range.check_in", Value: 1}}},
		{Keys: bson.D{{Key: "guest_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "range.check_out", Value: 1}}},
	})
	return &BookingRepository{col: col, locks: db.Collection("property_locks")}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.ID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) ListByProperty(ctx context.Context, propertyID domainproperty.ID) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"property_id": string(propertyID)}, options.Find().SetSort(bson.D{{Key: "range.check_in", Value: 1}}))
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"guest_id": guestID}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (r *BookingRepository) ListDueForCompletion(ctx context.Context, checkOutBefore time.Time, limit int) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"status":          string(domainbooking.StatusConfirmed),
		"range.check_out": bson.M{"$lt": checkOutBefore.UnixMilli()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "range.check_out", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, filter, opts)
}

// Insert must run inside a unit of work session.
func (r *BookingRepository) Insert(ctx context.Context, b *domainbooking.Booking) error {
	// every insert for a property writes the same lock document, so two
	// transactions racing on one property cannot both commit
	_, err := r.locks.UpdateByID(ctx, string(b.PropertyID),
		bson.M{"$inc": bson.M{"seq": 1}, "$set": bson.M{"touched_at": time.Now().UTC()}},
		options.Update().SetUpsert(true))
	if err != nil {
		if isWriteConflict(err) {
			return fmt.Errorf("%w: %w", domainbooking.ErrBookingConflict, err)
		}
		return err
	}

	overlap := bson.M{
		"property_id":     string(b.PropertyID),
		"status":          bson.M{"$in": blockingStatuses},
		"range.check_in":  bson.M{"$lt": b.Range.CheckOut.UnixMilli()},
		"range.check_out": bson.M{"$gt": b.Range.CheckIn.UnixMilli()},
	}
	n, err := r.col.CountDocuments(ctx, overlap)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %s on %s", domainbooking.ErrBookingConflict, b.PropertyID, b.Range)
	}

	doc := newBookingDocument(b)
	doc.Version = 1
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: booking %s already exists", domainbooking.ErrConcurrentUpdate, b.ID)
		}
		if isWriteConflict(err) {
			return fmt.Errorf("%w: %w", domainbooking.ErrBookingConflict, err)
		}
		return err
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) Update(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	res, err := r.col.ReplaceOne(ctx, filter, doc)
	if err != nil {
		if isWriteConflict(err) {
			return fmt.Errorf("%w: %w", domainbooking.ErrConcurrentUpdate, err)
		}
		return err
	}
	if res.MatchedCount == 0 {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

type bookingDocument struct {
	ID                 string        `bson:"_id"`
	PropertyID         string        `bson:"property_id"`
	GuestID            string        `bson:"guest_id"`
	Range              rangeDocument `bson:"range"`
	Guests             int           `bson:"guests"`
	Price              priceDocument `bson:"price"`
	Status             string        `bson:"status"`
	PaymentStatus      string        `bson:"payment_status"`
	SpecialRequests    string        `bson:"special_requests,omitempty"`
	CancellationReason string        `bson:"cancellation_reason,omitempty"`
	RejectionReason    string        `bson:"rejection_reason,omitempty"`
	CreatedAt          int64         `bson:"created_at"`
	UpdatedAt          int64         `bson:"updated_at"`
	ConfirmedAt        *int64        `bson:"confirmed_at,omitempty"`
	CancelledAt        *int64        `bson:"cancelled_at,omitempty"`
	CompletedAt        *int64        `bson:"completed_at,omitempty"`
	PaidAt             *int64        `bson:"paid_at,omitempty"`
	RefundedAt         *int64        `bson:"refunded_at,omitempty"`
	Version            int64         `bson:"version"`
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

// priceDocument keeps the snapshot in minor units of a single currency.
type priceDocument struct {
	Currency      string `bson:"currency"`
	PricePerNight int64  `bson:"price_per_night"`
	Nights        int    `bson:"nights"`
	Subtotal      int64  `bson:"subtotal"`
	CleaningFee   int64  `bson:"cleaning_fee"`
	ServiceFee    int64  `bson:"service_fee"`
	Total         int64  `bson:"total"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:         string(b.ID),
		PropertyID: string(b.PropertyID),
		GuestID:    b.GuestID,
		Range:      rangeDocument{CheckIn: b.Range.CheckIn.UnixMilli(), CheckOut: b.Range.CheckOut.UnixMilli()},
		Guests:     b.GuestsCount,
		Price: priceDocument{
			Currency:      b.Price.Total.Currency,
			PricePerNight: b.Price.PricePerNight.Amount,
			Nights:        b.Price.Nights,
			Subtotal:      b.Price.Subtotal.Amount,
			CleaningFee:   b.Price.CleaningFee.Amount,
			ServiceFee:    b.Price.ServiceFee.Amount,
			Total:         b.Price.Total.Amount,
		},
		Status:             string(b.Status),
		PaymentStatus:      string(b.PaymentStatus),
		SpecialRequests:    b.SpecialRequests,
		CancellationReason: b.CancellationReason,
		RejectionReason:    b.RejectionReason,
		CreatedAt:          b.CreatedAt.UnixMilli(),
		UpdatedAt:          b.UpdatedAt.UnixMilli(),
		ConfirmedAt:        millisPtr(b.ConfirmedAt),
		CancelledAt:        millisPtr(b.CancelledAt),
		CompletedAt:        millisPtr(b.CompletedAt),
		PaidAt:             millisPtr(b.PaidAt),
		RefundedAt:         millisPtr(b.RefundedAt),
		Version:            b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	cur := d.Price.Currency
	return &domainbooking.Booking{
		ID:          domainbooking.ID(d.ID),
		PropertyID:  domainproperty.ID(d.PropertyID),
		GuestID:     d.GuestID,
		Range:       domainrange.DateRange{CheckIn: timestampToTime(d.Range.CheckIn), CheckOut: timestampToTime(d.Range.CheckOut)},
		GuestsCount: d.Guests,
		Price: domainpricing.Breakdown{
			PricePerNight: money.Money{Amount: d.Price.PricePerNight, Currency: cur},
			Nights:        d.Price.Nights,
			Subtotal:      money.Money{Amount: d.Price.Subtotal, Currency: cur},
			CleaningFee:   money.Money{Amount: d.Price.CleaningFee, Currency: cur},
			ServiceFee:    money.Money{Amount: d.Price.ServiceFee, Currency: cur},
			Total:         money.Money{Amount: d.Price.Total, Currency: cur},
		},
		Status:             domainbooking.Status(d.Status),
		PaymentStatus:      domainbooking.PaymentStatus(d.PaymentStatus),
		SpecialRequests:    d.SpecialRequests,
		CancellationReason: d.CancellationReason,
		RejectionReason:    d.RejectionReason,
		CreatedAt:          timestampToTime(d.CreatedAt),
		UpdatedAt:          timestampToTime(d.UpdatedAt),
		ConfirmedAt:        timePtr(d.ConfirmedAt),
		CancelledAt:        timePtr(d.CancelledAt),
		CompletedAt:        timePtr(d.CompletedAt),
		PaidAt:             timePtr(d.PaidAt),
		RefundedAt:         timePtr(d.RefundedAt),
		Version:            d.Version,
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func millisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func timePtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := timestampToTime(*ms)
	return &t
}
