package detection

// FaceModel locates the model files used by FaceEncoder
type FaceModel struct {
	// CascadePath is an OpenCV Haar cascade XML for frontal faces
	CascadePath string

	// EmbedderPath is an OpenFace Torch model producing 128-d embeddings
	EmbedderPath string

	// MinFaceSize drops detections smaller than this many pixels per side
	MinFaceSize int
}
