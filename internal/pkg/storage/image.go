package storage

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// ImageProcessor decodes, bounds and re-encodes images as JPEG.
type ImageProcessor struct {
	quality int
}

// NewImageProcessor creates a new ImageProcessor.
func NewImageProcessor() *ImageProcessor {
	return &ImageProcessor{quality: 80}
}

// Decode reads an image, applying its EXIF orientation.
func (p *ImageProcessor) Decode(content io.Reader) (image.Image, error) {
	img, err := imaging.Decode(content, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Fit scales img down to fit within maxWidth x maxHeight and returns it as a
// JPEG. Images already inside the box keep their size.
func (p *ImageProcessor) Fit(img image.Image, maxWidth, maxHeight int) (*bytes.Buffer, error) {
	resized := imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, resized, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf, nil
}

// Thumbnail crops img to fill a size x size square, centred.
func (p *ImageProcessor) Thumbnail(img image.Image, size int) (*bytes.Buffer, error) {
	thumb := imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, thumb, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf, nil
}
