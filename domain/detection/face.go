package detection

import (
	"fmt"
	"image"
	"math"
)

// Descriptor is a fixed-length embedding of one detected face
type Descriptor []float64

// Distance returns the Euclidean distance between two descriptors
func Distance(a, b Descriptor) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("descriptor length mismatch: %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// FaceEncoder maps an image to one descriptor per detected face.
// This is a port that can be implemented by different face recognition backends
type FaceEncoder interface {
	Encode(img image.Image) ([]Descriptor, error)
	Close() error
}

// ReferenceFace returns the single face descriptor found in img
func ReferenceFace(encoder FaceEncoder, img image.Image) (Descriptor, error) {
	faces, err := encoder.Encode(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reference image: %w", err)
	}
	if len(faces) != 1 {
		return nil, &InvalidFaceCountError{Count: len(faces)}
	}
	return faces[0], nil
}
