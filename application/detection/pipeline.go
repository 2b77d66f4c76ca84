package detection

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	domain "face-scenes/domain/detection"
	"face-scenes/domain/video"
	"face-scenes/infrastructure/imgproc"
)

// DefaultQueueSize is the number of decoded frames buffered ahead of the detectors
const DefaultQueueSize = 4

// Options controls a single pipeline run
type Options struct {
	// FrameSkip passes only every FrameSkip+1-th frame to the detectors
	FrameSkip int

	// Downscale divides frame dimensions by this factor; 0 picks one from the frame width
	Downscale int

	// Duration stops the run this long after the start position
	Duration *time.Duration

	// EndTime stops the run at this absolute position
	EndTime *time.Duration

	// QueueSize bounds the decode-ahead channel; 0 uses DefaultQueueSize
	QueueSize int

	// Progress is called after every processed frame with (done, total)
	// in original-frame units. total is 0 when the length is unknown.
	Progress func(done, total int)
}

// Validate checks the options against the detectors they will run with
func (o Options) Validate(detectors []domain.CutDetector) error {
	if o.FrameSkip < 0 {
		return &domain.ConfigError{Option: "frame_skip", Reason: "must not be negative"}
	}
	if o.Downscale < 0 {
		return &domain.ConfigError{Option: "downscale", Reason: "must not be negative"}
	}
	if o.QueueSize < 0 {
		return &domain.ConfigError{Option: "queue_size", Reason: "must not be negative"}
	}
	if o.Duration != nil && o.EndTime != nil {
		return &domain.ConfigError{Option: "duration", Reason: "cannot be combined with end_time"}
	}
	if o.Duration != nil && *o.Duration < 0 {
		return &domain.ConfigError{Option: "duration", Reason: "must not be negative"}
	}
	if o.EndTime != nil && *o.EndTime < 0 {
		return &domain.ConfigError{Option: "end_time", Reason: "must not be negative"}
	}
	if o.FrameSkip > 0 {
		for _, d := range detectors {
			if d.Stateful() {
				return &domain.ConfigError{
					Option: "frame_skip",
					Reason: fmt.Sprintf("cannot be used with stateful detector %s", detectorName(d)),
				}
			}
		}
	}
	return nil
}

// Pipeline decodes frames on one goroutine and runs cut detectors over them on the caller's
type Pipeline struct {
	detectors []domain.CutDetector
	events    []domain.EventDetector
	logger    *zap.Logger
}

// PipelineOption configures a Pipeline
type PipelineOption func(*Pipeline)

// WithEventDetector adds a detector whose events are collected next to the cut stream
func WithEventDetector(d domain.EventDetector) PipelineOption {
	return func(p *Pipeline) {
		p.events = append(p.events, d)
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline creates a pipeline running the given detectors in order
func NewPipeline(detectors []domain.CutDetector, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		detectors: detectors,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start validates opts and begins decoding src from its current position.
// The caller must drain or Close the returned stream; src stays owned by the caller.
func (p *Pipeline) Start(ctx context.Context, src video.FrameSource, opts Options) (*CutStream, error) {
	if err := opts.Validate(p.detectors); err != nil {
		return nil, err
	}

	fps := src.FPS()
	if fps <= 0 {
		return nil, fmt.Errorf("source reports invalid frame rate %v", fps)
	}

	start := src.Position()
	count := src.FrameCount()

	end := -1
	switch {
	case opts.Duration != nil:
		end = start + video.FrameAt(*opts.Duration, fps)
	case opts.EndTime != nil:
		end = video.FrameAt(*opts.EndTime, fps)
	}
	if end >= 0 && count > 0 && end > count {
		end = count
	}

	total := 0
	switch {
	case end >= 0:
		total = max(0, end-start)
	case count > 0:
		total = max(0, count-start)
	}

	factor := opts.Downscale
	width, height := src.Size()
	if factor == 0 {
		factor = imgproc.AutoDownscaleFactor(width)
		p.logger.Info("automatic downscale selected",
			zap.Int("factor", factor),
			zap.Int("width", max(1, width/factor)),
			zap.Int("height", max(1, height/factor)))
	}

	lookahead := 0
	for _, d := range p.detectors {
		lookahead = max(lookahead, d.MaxLookahead())
	}
	history := newRingBuffer(lookahead + 1)
	for _, d := range p.detectors {
		if aware, ok := d.(domain.HistoryAware); ok {
			aware.AttachHistory(history)
		}
	}

	queue := opts.QueueSize
	if queue == 0 {
		queue = DefaultQueueSize
	}

	s := &CutStream{
		ctx:       ctx,
		detectors: p.detectors,
		events:    p.events,
		history:   history,
		progress:  opts.Progress,
		logger:    p.logger,
		frames:    make(chan frameItem, queue),
		done:      make(chan struct{}),
		start:     start,
		last:      start,
		total:     total,
		skip:      opts.FrameSkip,
		terminal:  start,
	}

	p.logger.Debug("pipeline starting",
		zap.Int("start_frame", start),
		zap.Int("end_frame", end),
		zap.Int("total_frames", total),
		zap.Int("frame_skip", opts.FrameSkip),
		zap.Int("downscale", factor),
		zap.Int("queue_size", queue),
		zap.Int("history", history.Cap()))

	s.wg.Add(1)
	go s.decode(src, opts.FrameSkip, factor, end)

	return s, nil
}

// frameItem is either a decoded frame or the error that ended decoding
type frameItem struct {
	index int
	img   image.Image
	err   error
}

// CutStream is a forward-only sequence of cut frame indices.
//
//	for stream.Next() {
//		cut := stream.Cut()
//	}
//	if err := stream.Err(); err != nil { ... }
//
// The last cut of a run that reached the end of its input is the terminal frame.
type CutStream struct {
	ctx       context.Context
	detectors []domain.CutDetector
	events    []domain.EventDetector
	history   *ringBuffer
	progress  func(done, total int)
	logger    *zap.Logger

	frames chan frameItem
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once

	stopped atomic.Bool

	// written by the decode goroutine before it closes frames
	terminal int

	start    int
	last     int
	total    int
	skip     int
	pending  []int
	cut      int
	found    []domain.Event
	err      error
	finished bool
}

func (s *CutStream) decode(src video.FrameSource, skip, factor, end int) {
	defer s.wg.Done()
	defer close(s.frames)

	for {
		// Stop as soon as the consumer shut the stream down
		select {
		case <-s.done:
			return
		default:
		}

		// Honor the stop condition before decoding another frame
		pos := src.Position()
		if end >= 0 && pos >= end {
			s.terminal = pos
			return
		}

		img, err := src.Read()
		if errors.Is(err, io.EOF) {
			s.terminal = src.Position()
			return
		}
		if err != nil {
			s.send(frameItem{index: pos, err: fmt.Errorf("failed to decode frame %d: %w", pos, err)})
			return
		}
		// Detectors only ever see the downscaled pixels; the index is unchanged
		if factor > 1 {
			img = imgproc.Downscale(img, factor)
		}
		if !s.send(frameItem{index: pos, img: img}) {
			return
		}

		// Skipped frames are grabbed, not decoded into images
		for i := 0; i < skip; i++ {
			if end >= 0 && src.Position() >= end {
				break
			}
			at := src.Position()
			if err := src.Grab(); err != nil {
				if errors.Is(err, io.EOF) {
					s.terminal = src.Position()
					return
				}
				s.send(frameItem{index: at, err: fmt.Errorf("failed to skip frame %d: %w", at, err)})
				return
			}
		}
	}
}

func (s *CutStream) send(item frameItem) bool {
	select {
	case s.frames <- item:
		return true
	case <-s.done:
		return false
	}
}

// Next advances to the next cut. It returns false when the stream has ended,
// after which Err reports why.
func (s *CutStream) Next() bool {
	for {
		if len(s.pending) > 0 {
			s.cut = s.pending[0]
			s.pending = s.pending[1:]
			return true
		}
		if s.finished {
			return false
		}

		if s.stopped.Load() {
			s.fail(domain.ErrStopped)
			return false
		}
		if err := s.ctx.Err(); err != nil {
			s.fail(err)
			return false
		}

		var (
			item frameItem
			ok   bool
		)
		select {
		case item, ok = <-s.frames:
		case <-s.ctx.Done():
			s.fail(s.ctx.Err())
			return false
		}

		if !ok {
			s.complete()
			continue
		}
		if item.err != nil {
			s.fail(item.err)
			return false
		}
		if err := s.process(item); err != nil {
			s.fail(err)
			return false
		}
	}
}

func (s *CutStream) process(item frameItem) error {
	s.history.Push(item.img)

	// Collect cuts from every detector, then keep them strictly increasing
	var cuts []int
	for _, d := range s.detectors {
		found, err := d.ProcessFrame(item.index, item.img)
		if err != nil {
			return fmt.Errorf("detector %s failed at frame %d: %w", detectorName(d), item.index, err)
		}
		cuts = append(cuts, found...)
	}
	slices.Sort(cuts)
	for _, c := range cuts {
		if c <= s.last {
			continue
		}
		if c > item.index {
			s.logger.Debug("ignoring cut ahead of current frame", zap.Int("cut", c), zap.Int("frame", item.index))
			continue
		}
		s.pending = append(s.pending, c)
		s.last = c
	}

	// Events are gathered on the side and never enter the cut sequence
	for _, d := range s.events {
		found, err := d.ProcessFrame(item.index, item.img)
		if err != nil {
			return fmt.Errorf("event detector %s failed at frame %d: %w", detectorName(d), item.index, err)
		}
		s.found = append(s.found, found...)
	}

	// Progress counts original frames, skipped ones included
	if s.progress != nil {
		done := item.index - s.start + 1 + s.skip
		if s.total > 0 && done > s.total {
			done = s.total
		}
		s.progress(done, s.total)
	}
	return nil
}

// complete runs once the decode goroutine closed the channel on its own
func (s *CutStream) complete() {
	s.shutdown()
	s.finished = true
	if s.terminal > s.last {
		s.pending = append(s.pending, s.terminal)
		s.last = s.terminal
	}
	if s.progress != nil {
		s.progress(s.terminal-s.start, max(s.total, s.terminal-s.start))
	}
	s.logger.Debug("pipeline finished", zap.Int("terminal_frame", s.terminal))
}

func (s *CutStream) fail(err error) {
	s.err = err
	s.finished = true
	s.pending = nil
	s.shutdown()
}

// shutdown signals the decode goroutine, drains what it buffered and waits for it
func (s *CutStream) shutdown() {
	s.once.Do(func() {
		close(s.done)
		for range s.frames {
		}
		s.wg.Wait()
	})
}

// Cut returns the cut produced by the last successful Next
func (s *CutStream) Cut() int {
	return s.cut
}

// Err returns the error that ended the stream, if any. It is ErrStopped after Stop
// and the context error after cancellation.
func (s *CutStream) Err() error {
	return s.err
}

// Stop asks the stream to end before the next frame. Safe to call from any goroutine.
func (s *CutStream) Stop() {
	s.stopped.Store(true)
}

// Close ends the stream early and releases the decode goroutine. It is safe to
// call more than once and after the stream has ended.
func (s *CutStream) Close() error {
	s.finished = true
	s.pending = nil
	s.shutdown()
	return nil
}

// StartFrame is the source position the run began at
func (s *CutStream) StartFrame() int {
	return s.start
}

// Total is the expected number of frames in the run, or 0 when unknown
func (s *CutStream) Total() int {
	return s.total
}

// Terminal is the frame the decoder stopped at. Valid once Next returned false.
func (s *CutStream) Terminal() int {
	return s.terminal
}

// Events returns the events collected by event detectors so far
func (s *CutStream) Events() []domain.Event {
	return s.found
}

// Collect drains the stream into a slice
func (s *CutStream) Collect() ([]int, error) {
	defer s.Close()

	var cuts []int
	for s.Next() {
		cuts = append(cuts, s.Cut())
	}
	return cuts, s.Err()
}

func detectorName(d any) string {
	if named, ok := d.(fmt.Stringer); ok {
		return named.String()
	}
	return fmt.Sprintf("%T", d)
}
