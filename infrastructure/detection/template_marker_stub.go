//go:build !detection

package detection

import (
	"errors"
	"image"

	"face-scenes/domain/detection"
)

// ErrMarkersUnavailable is returned when the binary was built without OpenCV support
var ErrMarkersUnavailable = errors.New("template markers not available: build with '-tags=detection' and install OpenCV/GoCV")

// TemplateMarker is a stub when GoCV/OpenCV is not available
type TemplateMarker struct{}

// NewTemplateMarker returns ErrMarkersUnavailable
func NewTemplateMarker(templatePath string, sourceWidth int, opts ...MarkerOption) (*TemplateMarker, error) {
	return nil, ErrMarkersUnavailable
}

// ProcessFrame returns ErrMarkersUnavailable
func (m *TemplateMarker) ProcessFrame(index int, frame image.Image) ([]detection.Event, error) {
	return nil, ErrMarkersUnavailable
}

// Close is a no-op in stub mode
func (m *TemplateMarker) Close() error { return nil }

// Ensure TemplateMarker implements detection.EventDetector
var _ detection.EventDetector = (*TemplateMarker)(nil)
