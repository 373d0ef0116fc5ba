package media

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/field-booking-backend/internal/pkg/apperror"
)

const (
	// MaxUploadBytes bounds the raw upload before decoding.
	MaxUploadBytes = 5 << 20
	// MaxDimension bounds both sides of the stored photo.
	MaxDimension = 1280
	// ThumbnailSize is the side of the square thumbnail.
	ThumbnailSize = 320
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, apperror.KindNotFound, "image not found")
	ErrFileRequired     = apperror.New(http.StatusBadRequest, apperror.KindValidation, "file is required")
	ErrTooLarge         = apperror.New(http.StatusRequestEntityTooLarge, apperror.KindValidation, "image must be at most 5 MiB")
	ErrUnsupportedType  = apperror.New(http.StatusUnsupportedMediaType, apperror.KindValidation, "image must be JPEG, PNG or GIF")
	ErrInvalidImage     = apperror.New(http.StatusBadRequest, apperror.KindValidation, "file is not a readable image")
	ErrPermissionDenied = apperror.New(http.StatusForbidden, apperror.KindForbidden, "permission denied")
)

// allowedTypes are the sniffed content types accepted for upload.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// Image is a stored field photo. Both renditions are JPEG.
type Image struct {
	ID            string
	FieldID       *string // nil once the field is gone
	UploadedBy    string
	Filename      string
	StoragePath   string
	ThumbnailPath string
	ContentType   string
	Size          int64
	CreatedAt     time.Time
}

// ImageURL returns the public URL for an image.
func ImageURL(id string) string {
	return "/v1/images/" + id
}

// ThumbnailURL returns the public URL for an image's thumbnail.
func ThumbnailURL(id string) string {
	return "/v1/images/" + id + "/thumbnail"
}
