package postgres

import (
	"time"

	domainbooking "staybook/internal/domain/booking"
	domainpricing "staybook/internal/domain/pricing"
	domainproperty "staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
)

type propertyRecord struct {
	ID                 string `gorm:"primaryKey;type:varchar(64)"`
	HostID             string `gorm:"type:varchar(64);index"`
	Title              string `gorm:"type:text"`
	MinimumStayNights  int    `gorm:"not null;default:0"`
	MaximumStayNights  int    `gorm:"not null;default:0"`
	MaxGuests          int    `gorm:"not null"`
	Currency           string `gorm:"type:char(3);not null"`
	PricePerNightMinor int64  `gorm:"not null"`
	CleaningFeeMinor   int64  `gorm:"not null"`
	UpdatedAt          time.Time
}

func (propertyRecord) TableName() string { return "properties" }

func newPropertyRecord(p *domainproperty.Property) propertyRecord {
	return propertyRecord{
		ID:                 string(p.ID),
		HostID:             p.HostID,
		Title:              p.Title,
		MinimumStayNights:  p.MinimumStayNights,
		MaximumStayNights:  p.MaximumStayNights,
		MaxGuests:          p.MaxGuests,
		Currency:           p.PricePerNight.Currency,
		PricePerNightMinor: p.PricePerNight.Amount,
		CleaningFeeMinor:   p.CleaningFee.Amount,
		UpdatedAt:          p.UpdatedAt.UTC(),
	}
}

func (r propertyRecord) toAggregate() *domainproperty.Property {
	return &domainproperty.Property{
		ID:                domainproperty.ID(r.ID),
		HostID:            r.HostID,
		Title:             r.Title,
		MinimumStayNights: r.MinimumStayNights,
		MaximumStayNights: r.MaximumStayNights,
		MaxGuests:         r.MaxGuests,
		PricePerNight:     money.Money{Amount: r.PricePerNightMinor, Currency: r.Currency},
		CleaningFee:       money.Money{Amount: r.CleaningFeeMinor, Currency: r.Currency},
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
}

type bookingRecord struct {
	ID                 string    `gorm:"primaryKey;type:varchar(64)"`
	PropertyID         string    `gorm:"type:varchar(64);not null;index:idx_bookings_property_checkin,priority:1"`
	GuestID            string    `gorm:"type:varchar(64);not null;index"`
	CheckIn            time.Time `gorm:"type:date;not null;index:idx_bookings_property_checkin,priority:2"`
	CheckOut           time.Time `gorm:"type:date;not null"`
	Guests             int       `gorm:"not null"`
	Status             string    `gorm:"type:varchar(16);not null;index"`
	PaymentStatus      string    `gorm:"type:varchar(16);not null"`
	Currency           string    `gorm:"type:char(3);not null"`
	PricePerNightMinor int64     `gorm:"not null"`
	Nights             int       `gorm:"not null"`
	SubtotalMinor      int64     `gorm:"not null"`
	CleaningFeeMinor   int64     `gorm:"not null"`
	ServiceFeeMinor    int64     `gorm:"not null"`
	TotalMinor         int64     `gorm:"not null"`
	SpecialRequests    string    `gorm:"type:text"`
	CancellationReason string    `gorm:"type:text"`
	RejectionReason    string    `gorm:"type:text"`
	CreatedAt          time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt          time.Time `gorm:"not null;autoUpdateTime:false"`
	ConfirmedAt        *time.Time
	CancelledAt        *time.Time
	CompletedAt        *time.Time
	PaidAt             *time.Time
	RefundedAt         *time.Time
	Version            int64 `gorm:"not null"`
}

func (bookingRecord) TableName() string { return "bookings" }

func newBookingRecord(b *domainbooking.Booking) bookingRecord {
	return bookingRecord{
		ID:                 string(b.ID),
		PropertyID:         string(b.PropertyID),
		GuestID:            b.GuestID,
		CheckIn:            b.Range.CheckIn,
		CheckOut:           b.Range.CheckOut,
		Guests:             b.GuestsCount,
		Status:             string(b.Status),
		PaymentStatus:      string(b.PaymentStatus),
		Currency:           b.Price.Total.Currency,
		PricePerNightMinor: b.Price.PricePerNight.Amount,
		Nights:             b.Price.Nights,
		SubtotalMinor:      b.Price.Subtotal.Amount,
		CleaningFeeMinor:   b.Price.CleaningFee.Amount,
		ServiceFeeMinor:    b.Price.ServiceFee.Amount,
		TotalMinor:         b.Price.Total.Amount,
		SpecialRequests:    b.SpecialRequests,
		CancellationReason: b.CancellationReason,
		RejectionReason:    b.RejectionReason,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
		ConfirmedAt:        b.ConfirmedAt,
		CancelledAt:        b.CancelledAt,
		CompletedAt:        b.CompletedAt,
		PaidAt:             b.PaidAt,
		RefundedAt:         b.RefundedAt,
		Version:            b.Version,
	}
}

func (r bookingRecord) toAggregate() *domainbooking.Booking {
	cur := r.Currency
	return &domainbooking.Booking{
		ID:          domainbooking.ID(r.ID),
		PropertyID:  domainproperty.ID(r.PropertyID),
		GuestID:     r.GuestID,
		Range:       daterange.DateRange{CheckIn: daterange.DateOf(r.CheckIn), CheckOut: daterange.DateOf(r.CheckOut)},
		GuestsCount: r.Guests,
		Price: domainpricing.Breakdown{
			PricePerNight: money.Money{Amount: r.PricePerNightMinor, Currency: cur},
			Nights:        r.Nights,
			Subtotal:      money.Money{Amount: r.SubtotalMinor, Currency: cur},
			CleaningFee:   money.Money{Amount: r.CleaningFeeMinor, Currency: cur},
			ServiceFee:    money.Money{Amount: r.ServiceFeeMinor, Currency: cur},
			Total:         money.Money{Amount: r.TotalMinor, Currency: cur},
		},
		Status:             domainbooking.Status(r.Status),
		PaymentStatus:      domainbooking.PaymentStatus(r.PaymentStatus),
		SpecialRequests:    r.SpecialRequests,
		CancellationReason: r.CancellationReason,
		RejectionReason:    r.RejectionReason,
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
		ConfirmedAt:        utcPtr(r.ConfirmedAt),
		CancelledAt:        utcPtr(r.CancelledAt),
		CompletedAt:        utcPtr(r.CompletedAt),
		PaidAt:             utcPtr(r.PaidAt),
		RefundedAt:         utcPtr(r.RefundedAt),
		Version:            r.Version,
	}
}

type outboxRecord struct {
	ID          string            `gorm:"primaryKey;type:varchar(64)"`
	Name        string            `gorm:"type:varchar(128);not null"`
	Payload     []byte            `gorm:"not null"`
	OccurredAt  time.Time         `gorm:"not null"`
	Aggregate   string            `gorm:"type:varchar(64)"`
	Headers     map[string]string `gorm:"serializer:json"`
	State       string            `gorm:"type:varchar(16);not null;index:idx_outbox_due,priority:1"`
	Attempts    int               `gorm:"not null;default:0"`
	NextAttempt time.Time         `gorm:"column:next_attempt_at;not null;index:idx_outbox_due,priority:2"`
	ClaimedBy   string            `gorm:"type:varchar(64)"`
	ClaimedAt   *time.Time
	SentAt      *time.Time
	LastError   string `gorm:"type:text"`
	CreatedAt   time.Time
}

func (outboxRecord) TableName() string { return "app_outbox" }

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

type idempotencyRecord struct {
	Key        string `gorm:"primaryKey;type:varchar(128)"`
	Payload    []byte
	OccurredAt time.Time `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

func (idempotencyRecord) TableName() string { return "app_idempotency" }

type inboxRecord struct {
	EventID    string    `gorm:"primaryKey;type:varchar(128)"`
	Consumer   string    `gorm:"primaryKey;type:varchar(64)"`
	ReceivedAt time.Time `gorm:"not null"`
}

func (inboxRecord) TableName() string { return "app_inbox" }
