package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nekogravitycat/field-booking-backend/internal/clock"
	"github.com/nekogravitycat/field-booking-backend/internal/field"
	"github.com/nekogravitycat/field-booking-backend/internal/pkg/storage"
)

// FieldCover is the part of the field service media needs.
type FieldCover interface {
	GetByID(ctx context.Context, id string) (*field.Field, error)
	SetCoverImage(ctx context.Context, id string, imageID *string, actorID string, isAdmin bool) error
}

// UploadInput describes one field photo upload.
type UploadInput struct {
	FieldID  string
	Filename string
	Content  io.Reader
	ActorID  string
	IsAdmin  bool
}

type Service interface {
	Upload(ctx context.Context, in UploadInput) (*Image, error)
	Get(ctx context.Context, id string) (*Image, error)
	ListByField(ctx context.Context, fieldID string) ([]*Image, error)
	Download(ctx context.Context, id string) (io.ReadCloser, *Image, error)
	DownloadThumbnail(ctx context.Context, id string) (io.ReadCloser, *Image, error)
	Delete(ctx context.Context, id string, actorID string, isAdmin bool) error
}

type service struct {
	repo    Repository
	fields  FieldCover
	storage storage.Storage
	imgProc *storage.ImageProcessor
	clock   clock.Clock
	logger  *zap.Logger
}

func NewService(repo Repository, fields FieldCover, store storage.Storage, clk clock.Clock, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		repo:    repo,
		fields:  fields,
		storage: store,
		imgProc: storage.NewImageProcessor(),
		clock:   clk,
		logger:  logger,
	}
}

// Upload stores a bounded JPEG rendition and a square thumbnail of the photo
// and makes it the field's cover. Any failure after the files are written
// removes what was written.
func (s *service) Upload(ctx context.Context, in UploadInput) (*Image, error) {
	if in.Content == nil {
		return nil, ErrFileRequired
	}

	f, err := s.fields.GetByID(ctx, in.FieldID)
	if err != nil {
		return nil, err
	}
	if !in.IsAdmin && f.OwnerID != in.ActorID {
		return nil, ErrPermissionDenied
	}

	raw, err := io.ReadAll(io.LimitReader(in.Content, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrFileRequired
	}
	if len(raw) > MaxUploadBytes {
		return nil, ErrTooLarge
	}
	if !allowedTypes[http.DetectContentType(raw)] {
		return nil, ErrUnsupportedType
	}

	decoded, err := s.imgProc.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, ErrInvalidImage
	}
	photo, err := s.imgProc.Fit(decoded, MaxDimension, MaxDimension)
	if err != nil {
		return nil, err
	}
	thumb, err := s.imgProc.Thumbnail(decoded, ThumbnailSize)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	// Sharding path: fields/ab/UUID.jpg
	shard := id[:2]
	img := &Image{
		ID:            id,
		FieldID:       &f.ID,
		UploadedBy:    in.ActorID,
		Filename:      jpegName(in.Filename),
		StoragePath:   fmt.Sprintf("fields/%s/%s.jpg", shard, id),
		ThumbnailPath: fmt.Sprintf("fields/%s/%s_thumb.jpg", shard, id),
		ContentType:   "image/jpeg",
		Size:          int64(photo.Len()),
		CreatedAt:     s.clock.Now(),
	}

	if err := s.storage.Save(ctx, img.StoragePath, photo); err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}
	if err := s.storage.Save(ctx, img.ThumbnailPath, thumb); err != nil {
		s.removeFiles(ctx, img)
		return nil, fmt.Errorf("failed to save thumbnail: %w", err)
	}

	if err := s.repo.Create(ctx, img); err != nil {
		s.removeFiles(ctx, img)
		return nil, err
	}

	if err := s.fields.SetCoverImage(ctx, f.ID, &img.ID, in.ActorID, in.IsAdmin); err != nil {
		if delErr := s.repo.Delete(ctx, img.ID); delErr != nil {
			s.logger.Warn("rollback image record failed", zap.String("image_id", img.ID), zap.Error(delErr))
		}
		s.removeFiles(ctx, img)
		return nil, err
	}

	return img, nil
}

func (s *service) Get(ctx context.Context, id string) (*Image, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListByField(ctx context.Context, fieldID string) ([]*Image, error) {
	if _, err := s.fields.GetByID(ctx, fieldID); err != nil {
		return nil, err
	}
	return s.repo.ListByField(ctx, fieldID)
}

func (s *service) Download(ctx context.Context, id string) (io.ReadCloser, *Image, error) {
	img, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	stream, err := s.open(ctx, img.StoragePath)
	if err != nil {
		return nil, nil, err
	}
	return stream, img, nil
}

func (s *service) DownloadThumbnail(ctx context.Context, id string) (io.ReadCloser, *Image, error) {
	img, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	stream, err := s.open(ctx, img.ThumbnailPath)
	if err != nil {
		return nil, nil, err
	}
	return stream, img, nil
}

// Delete removes an image. The uploader, the field's owner and admins may
// delete; a field whose cover it was falls back to no cover.
func (s *service) Delete(ctx context.Context, id string, actorID string, isAdmin bool) error {
	img, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	allowed := isAdmin || img.UploadedBy == actorID
	if !allowed && img.FieldID != nil {
		f, err := s.fields.GetByID(ctx, *img.FieldID)
		if err != nil && !errors.Is(err, field.ErrNotFound) {
			return err
		}
		allowed = f != nil && f.OwnerID == actorID
	}
	if !allowed {
		return ErrPermissionDenied
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.removeFiles(ctx, img)
	return nil
}

func (s *service) open(ctx context.Context, path string) (io.ReadCloser, error) {
	stream, err := s.storage.Get(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve image from storage: %w", err)
	}
	return stream, nil
}

// removeFiles deletes both renditions; failures only leave orphaned files.
func (s *service) removeFiles(ctx context.Context, img *Image) {
	for _, p := range []string{img.StoragePath, img.ThumbnailPath} {
		if err := s.storage.Delete(ctx, p); err != nil {
			s.logger.Warn("delete image file failed", zap.String("image_id", img.ID), zap.String("path", p), zap.Error(err))
		}
	}
}

// jpegName swaps the uploaded extension for .jpg, since renditions are re-encoded.
func jpegName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == "/" {
		base = "photo"
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".jpg"
}
