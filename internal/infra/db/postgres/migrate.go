package postgres

import (
	"fmt"

	"gorm.io/gorm"
)

// exclusionConstraint forbids two date-holding bookings of one property from
// overlapping. The daterange is half-open, so back-to-back stays pass.
const exclusionConstraint = `
DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'bookings_no_overlap') THEN
		ALTER TABLE bookings ADD CONSTRAINT bookings_no_overlap
			EXCLUDE USING gist (property_id WITH =, daterange(check_in, check_out, '[)') WITH &&)
			WHERE (status IN ('pending', 'confirmed'));
	END IF;
END
$$;`

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&propertyRecord{}, &bookingRecord{}, &outboxRecord{}, &idempotencyRecord{}, &inboxRecord{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if !isPostgres(db) {
		return nil
	}
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS btree_gist`).Error; err != nil {
		return fmt.Errorf("btree_gist: %w", err)
	}
	if err := db.Exec(exclusionConstraint).Error; err != nil {
		return fmt.Errorf("bookings exclusion constraint: %w", err)
	}
	return nil
}
