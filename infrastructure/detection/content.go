package detection

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"face-scenes/domain/detection"
)

// DefaultContentThreshold is the mean HSV delta above which two frames belong to different shots
const DefaultContentThreshold = 27.0

// DefaultMinSceneLength is the minimum number of frames between two cuts
const DefaultMinSceneLength = 15

// ContentDetector compares the average hue, saturation and value change
// between consecutive frames
type ContentDetector struct {
	threshold float64
	minLength int

	prev    []hsv
	lastCut int
	started bool
	score   float64
}

// ContentOption configures a ContentDetector
type ContentOption func(*ContentDetector)

// WithThreshold sets the cut threshold
func WithThreshold(threshold float64) ContentOption {
	return func(d *ContentDetector) {
		d.threshold = threshold
	}
}

// WithMinSceneLength sets the minimum scene length in frames
func WithMinSceneLength(frames int) ContentOption {
	return func(d *ContentDetector) {
		d.minLength = frames
	}
}

// NewContentDetector creates a content detector with default settings
func NewContentDetector(opts ...ContentOption) *ContentDetector {
	d := &ContentDetector{
		threshold: DefaultContentThreshold,
		minLength: DefaultMinSceneLength,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// hsv uses the OpenCV 8-bit ranges: hue in [0, 180), saturation and value in [0, 255]
type hsv struct {
	h, s, v float64
}

// ProcessFrame reports a cut at index when the frame differs enough from the previous one
func (d *ContentDetector) ProcessFrame(index int, frame image.Image) ([]int, error) {
	if frame == nil {
		return nil, fmt.Errorf("frame %d is empty", index)
	}
	cur := toHSV(frame)

	if !d.started {
		d.started = true
		d.lastCut = index
		d.prev = cur
		return nil, nil
	}
	if len(cur) != len(d.prev) {
		return nil, fmt.Errorf("frame %d size changed mid-stream", index)
	}

	var dh, ds, dv float64
	for i := range cur {
		dh += math.Abs(cur[i].h - d.prev[i].h)
		ds += math.Abs(cur[i].s - d.prev[i].s)
		dv += math.Abs(cur[i].v - d.prev[i].v)
	}
	n := float64(len(cur))
	d.score = (dh/n + ds/n + dv/n) / 3
	d.prev = cur

	if d.score >= d.threshold && index-d.lastCut >= d.minLength {
		d.lastCut = index
		return []int{index}, nil
	}
	return nil, nil
}

// Score returns the delta computed for the most recent frame
func (d *ContentDetector) Score() float64 {
	return d.score
}

// MaxLookahead is 1: only the previous frame is compared
func (d *ContentDetector) MaxLookahead() int { return 1 }

// Stateful is true: skipped frames would distort the deltas
func (d *ContentDetector) Stateful() bool { return true }

func (d *ContentDetector) String() string {
	return fmt.Sprintf("content(threshold=%g,min_scene_len=%d)", d.threshold, d.minLength)
}

func toHSV(img image.Image) []hsv {
	b := img.Bounds()
	out := make([]hsv, 0, b.Dx()*b.Dy())
	switch src := img.(type) {
	case *image.NRGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, y):]
			for x := 0; x < b.Dx(); x++ {
				out = append(out, rgbToHSV(row[4*x], row[4*x+1], row[4*x+2]))
			}
		}
		return out
	case *image.RGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, y):]
			for x := 0; x < b.Dx(); x++ {
				out = append(out, rgbToHSV(row[4*x], row[4*x+1], row[4*x+2]))
			}
		}
		return out
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			out = append(out, rgbToHSV(c.R, c.G, c.B))
		}
	}
	return out
}

func rgbToHSV(r8, g8, b8 uint8) hsv {
	r, g, b := float64(r8), float64(g8), float64(b8)
	hi := math.Max(r, math.Max(g, b))
	lo := math.Min(r, math.Min(g, b))
	delta := hi - lo

	var h float64
	switch {
	case delta == 0:
		h = 0
	case hi == r:
		h = 60 * math.Mod((g-b)/delta, 6)
	case hi == g:
		h = 60 * ((b-r)/delta + 2)
	default:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}

	var s float64
	if hi > 0 {
		s = delta / hi * 255
	}
	return hsv{h: h / 2, s: s, v: hi}
}

var _ detection.CutDetector = (*ContentDetector)(nil)
