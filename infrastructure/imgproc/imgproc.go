// Package imgproc holds the pixel operations shared by detection and matching.
package imgproc

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// DefaultEffectiveWidth is the frame width automatic downscaling aims for
const DefaultEffectiveWidth = 256

// AutoDownscaleFactor picks an integer divisor that brings width close to
// DefaultEffectiveWidth without going below it
func AutoDownscaleFactor(width int) int {
	if width < DefaultEffectiveWidth {
		return 1
	}
	return width / DefaultEffectiveWidth
}

// Downscale divides both dimensions of img by factor
func Downscale(img image.Image, factor int) image.Image {
	if factor <= 1 {
		return img
	}
	b := img.Bounds()
	w := max(1, b.Dx()/factor)
	h := max(1, b.Dy()/factor)
	return imaging.Resize(img, w, h, imaging.Box)
}

// Scale resizes img by quality, a fraction in (0, 1]
func Scale(img image.Image, quality float64) image.Image {
	if quality >= 1 {
		return img
	}
	b := img.Bounds()
	w := max(1, int(math.Round(float64(b.Dx())*quality)))
	h := max(1, int(math.Round(float64(b.Dy())*quality)))
	return imaging.Resize(img, w, h, imaging.Linear)
}

// Fit returns img resized to exactly width x height, or img itself if it already matches
func Fit(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	return imaging.Resize(img, width, height, imaging.Linear)
}

// Open decodes an image file, honouring EXIF orientation
func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	return img, nil
}
