//go:build !detection

package detection

import (
	"fmt"
	"image"

	"face-scenes/domain/detection"
)

// FaceEncoder is a stub when GoCV/OpenCV is not available
type FaceEncoder struct{}

// NewFaceEncoder returns an error indicating face encoding is not available
func NewFaceEncoder(model FaceModel) (*FaceEncoder, error) {
	return nil, fmt.Errorf("face encoding not available: build with '-tags=detection' and install OpenCV/GoCV")
}

// Encode returns an error indicating face encoding is not available
func (e *FaceEncoder) Encode(img image.Image) ([]detection.Descriptor, error) {
	return nil, fmt.Errorf("face encoding not available: build with '-tags=detection' and install OpenCV/GoCV")
}

// Close is a no-op in stub mode
func (e *FaceEncoder) Close() error { return nil }

// Ensure FaceEncoder implements detection.FaceEncoder
var _ detection.FaceEncoder = (*FaceEncoder)(nil)
