package http

import (
	"time"

	"github.com/nekogravitycat/field-booking-backend/internal/media"
)

type ImageResponse struct {
	ID           string    `json:"id"`
	FieldID      *string   `json:"field_id"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewImageResponse(img *media.Image) ImageResponse {
	return ImageResponse{
		ID:           img.ID,
		FieldID:      img.FieldID,
		Filename:     img.Filename,
		ContentType:  img.ContentType,
		Size:         img.Size,
		URL:          media.ImageURL(img.ID),
		ThumbnailURL: media.ThumbnailURL(img.ID),
		CreatedAt:    img.CreatedAt,
	}
}
