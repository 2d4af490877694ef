// AngelaMos | 2026
// dto.go

package catalog

import (
	"time"
)

type CreateVideoRequest struct {
	CollectionID        *string `json:"collection_id"         validate:"omitempty,uuid"`
	Title               string  `json:"title"                 validate:"required,min=1,max=200"`
	Description         string  `json:"description"           validate:"max=2000"`
	StoragePath         string  `json:"storage_path"          validate:"required,max=500"`
	PriceCents          int64   `json:"price_cents"           validate:"gte=0"`
	Currency            string  `json:"currency"              validate:"required,len=3"`
	DurationSeconds     int     `json:"duration_seconds"      validate:"gte=0"`
	RentalDurationHours *int    `json:"rental_duration_hours" validate:"omitempty,gt=0"`
}

type UpdateVideoRequest struct {
	Title               *string `json:"title"                 validate:"omitempty,min=1,max=200"`
	Description         *string `json:"description"           validate:"omitempty,max=2000"`
	StoragePath         *string `json:"storage_path"          validate:"omitempty,max=500"`
	PriceCents          *int64  `json:"price_cents"           validate:"omitempty,gte=0"`
	RentalDurationHours *int    `json:"rental_duration_hours" validate:"omitempty,gt=0"`
	IsActive            *bool   `json:"is_active"`
}

type CreateCollectionRequest struct {
	Title               string `json:"title"                 validate:"required,min=1,max=200"`
	Description         string `json:"description"           validate:"max=2000"`
	PriceCents          int64  `json:"price_cents"           validate:"gte=0"`
	Currency            string `json:"currency"              validate:"required,len=3"`
	RentalDurationHours *int   `json:"rental_duration_hours" validate:"omitempty,gt=0"`
}

type VideoResponse struct {
	ID              string    `json:"id"`
	CollectionID    *string   `json:"collection_id,omitempty"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	PriceCents      int64     `json:"price_cents"`
	Currency        string    `json:"currency"`
	DurationSeconds int       `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}

type CollectionResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToVideoResponse deliberately omits the storage path. Clients only ever see
// signed URLs.
func ToVideoResponse(v *Video) VideoResponse {
	return VideoResponse{
		ID:              v.ID,
		CollectionID:    v.CollectionID,
		Title:           v.Title,
		Description:     v.Description,
		PriceCents:      v.PriceCents,
		Currency:        v.Currency,
		DurationSeconds: v.DurationSeconds,
		CreatedAt:       v.CreatedAt,
	}
}

func ToVideoResponseList(videos []Video) []VideoResponse {
	responses := make([]VideoResponse, 0, len(videos))
	for _, v := range videos {
		responses = append(responses, ToVideoResponse(&v))
	}
	return responses
}

func ToCollectionResponse(c *Collection) CollectionResponse {
	return CollectionResponse{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		PriceCents:  c.PriceCents,
		Currency:    c.Currency,
		CreatedAt:   c.CreatedAt,
	}
}

func ToCollectionResponseList(collections []Collection) []CollectionResponse {
	responses := make([]CollectionResponse, 0, len(collections))
	for _, c := range collections {
		responses = append(responses, ToCollectionResponse(&c))
	}
	return responses
}
