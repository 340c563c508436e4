package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	domainproperty "staybook/internal/domain/property"
	"staybook/internal/domain/shared/money"
)

type propertyFixture struct {
	ID                string `json:"id"`
	HostID            string `json:"host_id"`
	Title             string `json:"title"`
	MinimumStayNights int    `json:"minimum_stay_nights"`
	MaximumStayNights int    `json:"maximum_stay_nights"`
	MaxGuests         int    `json:"max_guests"`
	Currency          string `json:"currency"`
	PricePerNight     string `json:"price_per_night"`
	CleaningFee       string `json:"cleaning_fee"`
}

func (a *application) loadPropertyFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	if a.seed == nil {
		return nil
	}
	if path == "" {
		path = defaultPropertyFixturesPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("property fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures []propertyFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now().UTC()
	for _, fx := range fixtures {
		p, err := fx.toProperty(now)
		if err != nil {
			logger.Error("fixture invalid", "property_id", fx.ID, "error", err)
			continue
		}
		if err := a.seed(ctx, p); err != nil {
			logger.Error("cannot store fixture property", "property_id", fx.ID, "error", err)
			continue
		}
		logger.Info("property fixture imported", "property_id", p.ID)
	}
	return nil
}

func (fx propertyFixture) toProperty(now time.Time) (*domainproperty.Property, error) {
	currency := strings.ToUpper(strings.TrimSpace(fx.Currency))
	nightly, err := money.Parse(fx.PricePerNight, currency)
	if err != nil {
		return nil, fmt.Errorf("price_per_night: %w", err)
	}
	cleaning := money.Zero(currency)
	if strings.TrimSpace(fx.CleaningFee) != "" {
		if cleaning, err = money.Parse(fx.CleaningFee, currency); err != nil {
			return nil, fmt.Errorf("cleaning_fee: %w", err)
		}
	}
	p := &domainproperty.Property{
		ID:                domainproperty.ID(fx.ID),
		HostID:            fx.HostID,
		Title:             fx.Title,
		MinimumStayNights: fx.MinimumStayNights,
		MaximumStayNights: fx.MaximumStayNights,
		MaxGuests:         fx.MaxGuests,
		PricePerNight:     nightly,
		CleaningFee:       cleaning,
		UpdatedAt:         now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func defaultPropertyFixturesPath() string {
	return filepath.Join("data", "properties.json")
}
