package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainproperty "staybook/internal/domain/property"
	"staybook/internal/domain/shared/money"
)

type PropertyRepository struct {
	col *mongo.Collection
}

func NewPropertyRepository(db *mongo.Database) *PropertyRepository {
	return &PropertyRepository{col: db.Collection("agg_property")}
}

func (r *PropertyRepository) ByID(ctx context.Context, id domainproperty.ID) (*domainproperty.Property, error) {
	var doc propertyDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainproperty.ErrPropertyNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *domainproperty.Property) error {
	if err := p.Validate(); err != nil {
		return err
	}
	doc := propertyDocument{
		ID:                string(p.ID),
		HostID:            p.HostID,
		Title:             p.Title,
		MinimumStayNights: p.MinimumStayNights,
		MaximumStayNights: p.MaximumStayNights,
		MaxGuests:         p.MaxGuests,
		Currency:          p.PricePerNight.Currency,
		PricePerNight:     p.PricePerNight.Amount,
		CleaningFee:       p.CleaningFee.Amount,
		UpdatedAt:         p.UpdatedAt.UTC(),
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

type propertyDocument struct {
	ID                string    `bson:"_id"`
	HostID            string    `bson:"host_id"`
	Title             string    `bson:"title"`
	MinimumStayNights int       `bson:"minimum_stay_nights"`
	MaximumStayNights int       `bson:"maximum_stay_nights"`
	MaxGuests         int       `bson:"max_guests"`
	Currency          string    `bson:"currency"`
	PricePerNight     int64     `bson:"price_per_night"`
	CleaningFee       int64     `bson:"cleaning_fee"`
	UpdatedAt         time.Time `bson:"updated_at"`
}

func (d propertyDocument) toAggregate() *domainproperty.Property {
	return &domainproperty.Property{
		ID:                domainproperty.ID(d.ID),
		HostID:            d.HostID,
		Title:             d.Title,
		MinimumStayNights: d.MinimumStayNights,
		MaximumStayNights: d.MaximumStayNights,
		MaxGuests:         d.MaxGuests,
		PricePerNight:     money.Money{Amount: d.PricePerNight, Currency: d.Currency},
		CleaningFee:       money.Money{Amount: d.CleaningFee, Currency: d.Currency},
		UpdatedAt:         d.UpdatedAt.UTC(),
	}
}
