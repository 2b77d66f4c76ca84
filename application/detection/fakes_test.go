package detection

import (
	"errors"
	"image"
	"image/color"
	"io"
	"sync"
	"time"

	domain "face-scenes/domain/detection"
)

var errBoom = errors.New("boom")

// fakeSource serves solid-colour frames whose red channel is the scene number
type fakeSource struct {
	mu    sync.Mutex
	count int

	// reported overrides the frame count the source claims to have
	reported int

	fps    float64
	width  int
	height int
	pos    int

	// sceneAt maps a frame index to its scene number
	sceneAt func(i int) int
	failAt  int
	delay   time.Duration
	reads   []int
	seeks   []int
	grabs   int
	closed  bool
}

func newFakeSource(count int, fps float64, sceneAt func(int) int) *fakeSource {
	if sceneAt == nil {
		sceneAt = func(int) int { return 0 }
	}
	return &fakeSource{
		count:   count,
		fps:     fps,
		width:   64,
		height:  48,
		sceneAt: sceneAt,
		failAt:  -1,
	}
}

// cutsAt returns a sceneAt function switching scene at each of the given frames
func cutsAt(cuts ...int) func(int) int {
	return func(i int) int {
		n := 0
		for _, c := range cuts {
			if i >= c {
				n++
			}
		}
		return n
	}
}

func (f *fakeSource) Seek(index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 0 {
		return errors.New("negative seek")
	}
	f.seeks = append(f.seeks, index)
	f.pos = index
	return nil
}

func (f *fakeSource) Read() (image.Image, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAt >= 0 && f.pos == f.failAt {
		return nil, errBoom
	}
	if f.pos >= f.count {
		return nil, io.EOF
	}
	img := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	c := color.RGBA{R: uint8(f.sceneAt(f.pos) * 40), G: 10, B: 10, A: 255}
	for y := 0; y < f.height; y++ {
		for x := 0; x < f.width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	f.reads = append(f.reads, f.pos)
	f.pos++
	return img, nil
}

func (f *fakeSource) Grab() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos >= f.count {
		return io.EOF
	}
	f.grabs++
	f.pos++
	return nil
}

func (f *fakeSource) Position() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

func (f *fakeSource) FPS() float64     { return f.fps }
func (f *fakeSource) Size() (int, int) { return f.width, f.height }
func (f *fakeSource) Close() error     { f.closed = true; return nil }

func (f *fakeSource) FrameCount() int {
	if f.reported > 0 {
		return f.reported
	}
	return f.count
}

func (f *fakeSource) readIndexes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.reads...)
}

// redOf returns the red channel of the top-left pixel
func redOf(img image.Image) uint32 {
	r, _, _, _ := img.At(img.Bounds().Min.X, img.Bounds().Min.Y).RGBA()
	return r
}

// changeDetector reports a cut whenever the red channel differs from the previous frame
type changeDetector struct {
	stateful bool
	prev     uint32
	seen     bool
	calls    []int
	sizes    []image.Rectangle
	failAt   int
}

func newChangeDetector(stateful bool) *changeDetector {
	return &changeDetector{stateful: stateful, failAt: -1}
}

func (d *changeDetector) ProcessFrame(index int, frame image.Image) ([]int, error) {
	if index == d.failAt {
		return nil, errBoom
	}
	d.calls = append(d.calls, index)
	d.sizes = append(d.sizes, frame.Bounds())
	r := redOf(frame)
	defer func() { d.prev, d.seen = r, true }()
	if d.seen && r != d.prev {
		return []int{index}, nil
	}
	return nil, nil
}

func (d *changeDetector) MaxLookahead() int { return 1 }
func (d *changeDetector) Stateful() bool    { return d.stateful }

// historyDetector records what it can see through the attached history
type historyDetector struct {
	lookahead int
	history   domain.History
	visible   []int
}

func (d *historyDetector) AttachHistory(h domain.History) { d.history = h }

func (d *historyDetector) ProcessFrame(index int, frame image.Image) ([]int, error) {
	n := 0
	for {
		if _, ok := d.history.Back(n); !ok {
			break
		}
		n++
	}
	d.visible = append(d.visible, n)
	return nil, nil
}

func (d *historyDetector) MaxLookahead() int { return d.lookahead }
func (d *historyDetector) Stateful() bool    { return false }

// scriptedDetector returns fixed cuts at fixed frames
type scriptedDetector struct {
	cuts map[int][]int
}

func (d *scriptedDetector) ProcessFrame(index int, frame image.Image) ([]int, error) {
	return d.cuts[index], nil
}

func (d *scriptedDetector) MaxLookahead() int { return 0 }
func (d *scriptedDetector) Stateful() bool    { return false }

// markerEvents emits an event for every frame whose scene number is odd
type markerEvents struct{}

func (markerEvents) ProcessFrame(index int, frame image.Image) ([]domain.Event, error) {
	if (redOf(frame)>>8)/40%2 == 1 {
		return []domain.Event{{StartFrame: index, EndFrame: index + 1, Label: "odd"}}, nil
	}
	return nil, nil
}
