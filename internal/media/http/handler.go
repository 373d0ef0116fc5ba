package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nekogravitycat/field-booking-backend/internal/auth"
	"github.com/nekogravitycat/field-booking-backend/internal/media"
	"github.com/nekogravitycat/field-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/field-booking-backend/internal/pkg/response"
)

// formOverhead leaves room for multipart boundaries and headers around the file part.
const formOverhead = 64 << 10

type Handler struct {
	service media.Service
}

func NewHandler(service media.Service) *Handler {
	return &Handler{service: service}
}

// Upload stores a photo for the field and makes it the cover.
func (h *Handler) Upload(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid field id", err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, media.MaxUploadBytes+formOverhead)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(c, media.ErrTooLarge)
			return
		}
		response.Error(c, media.ErrFileRequired)
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, err)
		return
	}
	defer src.Close()

	img, err := h.service.Upload(c.Request.Context(), media.UploadInput{
		FieldID:  uri.ID,
		Filename: fileHeader.Filename,
		Content:  src,
		ActorID:  auth.GetUserID(c),
		IsAdmin:  auth.IsAdmin(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewImageResponse(img))
}

// ListByField lists the photos of a field, newest first.
func (h *Handler) ListByField(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid field id", err)
		return
	}

	images, err := h.service.ListByField(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]ImageResponse, len(images))
	for i, img := range images {
		items[i] = NewImageResponse(img)
	}
	c.JSON(http.StatusOK, response.NewListResponse(items))
}

// ServeImage streams the stored photo.
func (h *Handler) ServeImage(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid image id", err)
		return
	}

	stream, img, err := h.service.Download(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer stream.Close()

	writeStream(c, stream, img.ContentType, img.Filename)
}

// ServeThumbnail streams the square thumbnail.
func (h *Handler) ServeThumbnail(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid image id", err)
		return
	}

	stream, img, err := h.service.DownloadThumbnail(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer stream.Close()

	writeStream(c, stream, "image/jpeg", "thumb_"+img.Filename)
}

func (h *Handler) Delete(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid image id", err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), uri.ID, auth.GetUserID(c), auth.IsAdmin(c)); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeStream(c *gin.Context, stream io.Reader, contentType, filename string) {
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", "inline; filename=\""+filename+"\"")
	c.Header("Cache-Control", "public, max-age=86400")

	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, stream); err != nil {
		// Headers are already sent.
		zap.L().Warn("stream image failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
}
