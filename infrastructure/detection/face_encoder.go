//go:build detection

package detection

import (
	"fmt"
	"image"
	"math"
	"os"

	"gocv.io/x/gocv"

	"face-scenes/domain/detection"
)

// FaceEncoder implements detection.FaceEncoder with a Haar cascade for
// detection and an OpenFace network for 128-d embeddings
type FaceEncoder struct {
	classifier gocv.CascadeClassifier
	net        gocv.Net
	minSize    int
}

// NewFaceEncoder loads the cascade and embedding models
func NewFaceEncoder(model FaceModel) (*FaceEncoder, error) {
	if err := model.check(); err != nil {
		return nil, err
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(model.CascadePath) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load face cascade: %s", model.CascadePath)
	}

	// The framework is picked from the model file extension (.t7 for Torch)
	net := gocv.ReadNet(model.EmbedderPath, "")
	if net.Empty() {
		classifier.Close()
		return nil, fmt.Errorf("failed to load face embedding model: %s", model.EmbedderPath)
	}

	return &FaceEncoder{
		classifier: classifier,
		net:        net,
		minSize:    model.MinFaceSize,
	}, nil
}

// Encode returns one normalised descriptor per detected face
func (e *FaceEncoder) Encode(img image.Image) ([]detection.Descriptor, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	var descriptors []detection.Descriptor
	for _, rect := range e.classifier.DetectMultiScale(gray) {
		if rect.Dx() < e.minSize || rect.Dy() < e.minSize {
			continue
		}
		desc, err := e.embed(mat, rect)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, desc)
	}
	return descriptors, nil
}

func (e *FaceEncoder) embed(mat gocv.Mat, rect image.Rectangle) (detection.Descriptor, error) {
	face := mat.Region(rect)
	defer face.Close()

	blob := gocv.BlobFromImage(face, 1.0/255, image.Pt(96, 96), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	e.net.SetInput(blob, "")
	out := e.net.Forward("")
	defer out.Close()

	if out.Empty() {
		return nil, fmt.Errorf("embedding model returned no output")
	}

	n := out.Total()
	desc := make(detection.Descriptor, n)
	var norm float64
	for i := 0; i < n; i++ {
		v := float64(out.GetFloatAt(0, i))
		desc[i] = v
		norm += v * v
	}
	if norm = math.Sqrt(norm); norm > 0 {
		for i := range desc {
			desc[i] /= norm
		}
	}
	return desc, nil
}

// Close releases the loaded models
func (e *FaceEncoder) Close() error {
	if err := e.net.Close(); err != nil {
		return err
	}
	return e.classifier.Close()
}

func (m FaceModel) check() error {
	for _, path := range []string{m.CascadePath, m.EmbedderPath} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("face model file not found: %s", path)
		}
	}
	return nil
}

// Ensure FaceEncoder implements detection.FaceEncoder
var _ detection.FaceEncoder = (*FaceEncoder)(nil)
