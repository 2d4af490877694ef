// AngelaMos | 2026
// entity.go

package catalog

import (
	"time"
)

// Video is an individually purchasable piece of content. StoragePath is the
// object path on the storage edge, never exposed to clients unsigned.
type Video struct {
	ID                  string     `db:"id"`
	CollectionID        *string    `db:"collection_id"`
	Title               string     `db:"title"`
	Description         string     `db:"description"`
	StoragePath         string     `db:"storage_path"`
	PriceCents          int64      `db:"price_cents"`
	Currency            string     `db:"currency"`
	DurationSeconds     int        `db:"duration_seconds"`
	RentalDurationHours *int       `db:"rental_duration_hours"`
	IsActive            bool       `db:"is_active"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
	DeletedAt           *time.Time `db:"deleted_at"`
}

// Collection groups videos and is itself purchasable as one content id.
type Collection struct {
	ID                  string     `db:"id"`
	Title               string     `db:"title"`
	Description         string     `db:"description"`
	PriceCents          int64      `db:"price_cents"`
	Currency            string     `db:"currency"`
	RentalDurationHours *int       `db:"rental_duration_hours"`
	IsActive            bool       `db:"is_active"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
	DeletedAt           *time.Time `db:"deleted_at"`
}

// Content is the purchasable view of either a video or a collection. The
// reconciler prices grants from it and the stream issuer signs its path.
type Content struct {
	ID                  string
	Kind                ContentKind
	CollectionID        *string
	Title               string
	StoragePath         string
	PriceCents          int64
	Currency            string
	RentalDurationHours *int
}

type ContentKind string

const (
	ContentVideo      ContentKind = "video"
	ContentCollection ContentKind = "collection"
)

// RentalDuration returns the rental window, or false for permanent content.
func (c *Content) RentalDuration() (time.Duration, bool) {
	if c.RentalDurationHours == nil {
		return 0, false
	}
	return time.Duration(*c.RentalDurationHours) * time.Hour, true
}
