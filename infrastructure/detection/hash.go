package detection

import (
	"fmt"
	"image"

	"github.com/corona10/goimagehash"

	"face-scenes/domain/detection"
)

// DefaultHashThreshold is the Hamming distance between difference hashes that marks a cut
const DefaultHashThreshold = 12

// HashDetector compares perceptual difference hashes of consecutive frames
type HashDetector struct {
	threshold int
	minLength int

	prev     *goimagehash.ImageHash
	lastCut  int
	distance int
}

// HashOption configures a HashDetector
type HashOption func(*HashDetector)

// WithHashThreshold sets the Hamming distance threshold
func WithHashThreshold(threshold int) HashOption {
	return func(d *HashDetector) {
		d.threshold = threshold
	}
}

// WithHashMinSceneLength sets the minimum scene length in frames
func WithHashMinSceneLength(frames int) HashOption {
	return func(d *HashDetector) {
		d.minLength = frames
	}
}

// NewHashDetector creates a hash detector with default settings
func NewHashDetector(opts ...HashOption) *HashDetector {
	d := &HashDetector{
		threshold: DefaultHashThreshold,
		minLength: DefaultMinSceneLength,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ProcessFrame reports a cut at index when the hash moved further than the threshold
func (d *HashDetector) ProcessFrame(index int, frame image.Image) ([]int, error) {
	hash, err := goimagehash.DifferenceHash(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to hash frame %d: %w", index, err)
	}

	if d.prev == nil {
		d.prev = hash
		d.lastCut = index
		return nil, nil
	}

	distance, err := d.prev.Distance(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to compare frame %d: %w", index, err)
	}
	d.prev = hash
	d.distance = distance

	if distance >= d.threshold && index-d.lastCut >= d.minLength {
		d.lastCut = index
		return []int{index}, nil
	}
	return nil, nil
}

// Distance returns the Hamming distance computed for the most recent frame
func (d *HashDetector) Distance() int {
	return d.distance
}

// MaxLookahead is 1: only the previous frame is compared
func (d *HashDetector) MaxLookahead() int { return 1 }

// Stateful is true: the previous hash must come from the previous frame
func (d *HashDetector) Stateful() bool { return true }

func (d *HashDetector) String() string {
	return fmt.Sprintf("hash(threshold=%d,min_scene_len=%d)", d.threshold, d.minLength)
}

var _ detection.CutDetector = (*HashDetector)(nil)
