package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainproperty "staybook/internal/domain/property"
)

func TestFixtureToProperty(t *testing.T) {
	fx := propertyFixture{
		ID:                "prop-1",
		MinimumStayNights: 2,
		MaxGuests:         4,
		Currency:          "eur",
		PricePerNight:     "150.00",
		CleaningFee:       "50",
	}
	p, err := fx.toProperty(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(15000), p.PricePerNight.Amount)
	assert.Equal(t, int64(5000), p.CleaningFee.Amount)
	assert.Equal(t, "EUR", p.CleaningFee.Currency)

	fx.MaxGuests = 0
	_, err = fx.toProperty(time.Now())
	assert.Error(t, err)

	fx.MaxGuests = 2
	fx.PricePerNight = "cheap"
	_, err = fx.toProperty(time.Now())
	assert.Error(t, err)
}

func TestLoadPropertyFixtures(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var seeded []domainproperty.ID
	app := &application{seed: func(_ context.Context, p *domainproperty.Property) error {
		seeded = append(seeded, p.ID)
		return nil
	}}

	require.NoError(t, app.loadPropertyFixtures(context.Background(), filepath.Join("..", "..", "data", "properties.json"), logger))
	assert.Contains(t, seeded, domainproperty.ID("prop-lisbon-loft"))

	require.NoError(t, app.loadPropertyFixtures(context.Background(), filepath.Join(t.TempDir(), "absent.json"), logger))

	broken := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("[{"), 0o600))
	assert.Error(t, app.loadPropertyFixtures(context.Background(), broken, logger))
}
