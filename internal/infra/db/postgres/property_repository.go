package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainproperty "staybook/internal/domain/property"
)

type PropertyRepository struct {
	db *gorm.DB
}

func NewPropertyRepository(db *gorm.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

func (r *PropertyRepository) ByID(ctx context.Context, id domainproperty.ID) (*domainproperty.Property, error) {
	var rec propertyRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainproperty.ErrPropertyNotFound
		}
		return nil, err
	}
	return rec.toAggregate(), nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *domainproperty.Property) error {
	if err := p.Validate(); err != nil {
		return err
	}
	rec := newPropertyRecord(p)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
}
