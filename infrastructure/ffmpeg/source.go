package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"

	ffmpeggo "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"

	"face-scenes/domain/video"
)

func init() {
	ffmpeggo.LogCompiledCommand = false
}

// Opener opens videos as rgba rawvideo streams piped out of ffmpeg
type Opener struct {
	ffmpegPath string
	runner     PipeRunner
	probe      ProbeFunc
	logger     *zap.Logger
}

// OpenerOption is a functional option for configuring Opener
type OpenerOption func(*Opener)

// WithOpenerFFmpegPath sets a custom ffmpeg executable path
func WithOpenerFFmpegPath(path string) OpenerOption {
	return func(o *Opener) {
		if path != "" {
			o.ffmpegPath = path
		}
	}
}

// WithPipeRunner sets a custom pipe runner (for testing)
func WithPipeRunner(runner PipeRunner) OpenerOption {
	return func(o *Opener) {
		o.runner = runner
	}
}

// WithProbe sets a custom probe function (for testing)
func WithProbe(probe ProbeFunc) OpenerOption {
	return func(o *Opener) {
		o.probe = probe
	}
}

// WithOpenerLogger sets the logger
func WithOpenerLogger(logger *zap.Logger) OpenerOption {
	return func(o *Opener) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOpener creates a new ffmpeg-backed source opener
func NewOpener(opts ...OpenerOption) *Opener {
	o := &Opener{
		ffmpegPath: "ffmpeg",
		probe:      DefaultProbe,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.runner == nil {
		o.runner = NewExecCommandRunner(o.logger)
	}
	return o
}

// Open implements video.SourceOpener
func (o *Opener) Open(path string) (video.FrameSource, error) {
	data, err := o.probe(path)
	if err != nil {
		return nil, fmt.Errorf("failed to probe %s: %w", path, err)
	}
	info, err := ParseProbe(data)
	if err != nil {
		return nil, fmt.Errorf("failed to probe %s: %w", path, err)
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("failed to probe %s: invalid frame size %dx%d", path, info.Width, info.Height)
	}

	o.logger.Debug("opened video",
		zap.String("path", path),
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
		zap.Float64("fps", info.FPS),
		zap.Int("frames", info.FrameCount))

	return &Source{
		path:       path,
		ffmpegPath: o.ffmpegPath,
		runner:     o.runner,
		info:       info,
		frameSize:  info.Width * info.Height * 4,
	}, nil
}

// Source decodes frames sequentially from an ffmpeg process. Seeking restarts
// the process at the requested frame's timestamp.
type Source struct {
	path       string
	ffmpegPath string
	runner     PipeRunner
	info       StreamInfo
	frameSize  int

	stdout  io.ReadCloser
	pos     int
	ended   bool
	discard []byte
}

// DecodeArgs builds the ffmpeg arguments that stream frames from start as rgba rawvideo
func DecodeArgs(path string, start int, fps float64) []string {
	input := ffmpeggo.KwArgs{}
	if start > 0 {
		input["ss"] = SeekTime(start, fps)
	}
	return ffmpeggo.Input(path, input).
		Output("pipe:", ffmpeggo.KwArgs{
			"format":   "rawvideo",
			"pix_fmt":  "rgba",
			"vsync":    "passthrough",
			"loglevel": "error",
		}).
		GetArgs()
}

// SeekTime returns the -ss value that makes ffmpeg's accurate input seek
// deliver frame first. It points half a frame before the frame's timestamp,
// so rounding can never push the seek past it.
func SeekTime(frame int, fps float64) string {
	if frame <= 0 || fps <= 0 {
		return "0"
	}
	return strconv.FormatFloat((float64(frame)-0.5)/fps, 'f', -1, 64)
}

func (s *Source) ensureStarted() error {
	if s.stdout != nil {
		return nil
	}
	args := DecodeArgs(s.path, s.pos, s.info.FPS)
	stdout, err := s.runner.StartReader(context.Background(), s.ffmpegPath, args...)
	if err != nil {
		return fmt.Errorf("failed to start decoder at frame %d: %w", s.pos, err)
	}
	s.stdout = stdout
	return nil
}

func (s *Source) stop() error {
	if s.stdout == nil {
		return nil
	}
	err := s.stdout.Close()
	s.stdout = nil
	return err
}

// Seek implements video.FrameSource
func (s *Source) Seek(index int) error {
	if index < 0 {
		return fmt.Errorf("cannot seek to negative frame %d", index)
	}
	if index == s.pos && s.stdout != nil {
		return nil
	}
	_ = s.stop()
	s.pos = index
	s.ended = false
	return nil
}

// Read implements video.FrameSource
func (s *Source) Read() (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, s.info.Width, s.info.Height))
	if err := s.readFrame(img.Pix); err != nil {
		return nil, err
	}
	return img, nil
}

// Grab implements video.FrameSource
func (s *Source) Grab() error {
	if len(s.discard) != s.frameSize {
		s.discard = make([]byte, s.frameSize)
	}
	return s.readFrame(s.discard)
}

func (s *Source) readFrame(buf []byte) error {
	if s.ended {
		return io.EOF
	}
	if err := s.ensureStarted(); err != nil {
		return err
	}
	if _, err := io.ReadFull(s.stdout, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			s.ended = true
			if closeErr := s.stop(); closeErr != nil {
				return fmt.Errorf("decoder failed at frame %d: %w", s.pos, closeErr)
			}
			return io.EOF
		}
		_ = s.stop()
		return fmt.Errorf("failed to read frame %d: %w", s.pos, err)
	}
	s.pos++
	return nil
}

// Position implements video.FrameSource
func (s *Source) Position() int { return s.pos }

// FPS implements video.FrameSource
func (s *Source) FPS() float64 { return s.info.FPS }

// FrameCount implements video.FrameSource
func (s *Source) FrameCount() int { return s.info.FrameCount }

// Size implements video.FrameSource
func (s *Source) Size() (int, int) { return s.info.Width, s.info.Height }

// HasAudio reports whether the probed file carries an audio stream
func (s *Source) HasAudio() bool { return s.info.HasAudio }

// Close implements video.FrameSource
func (s *Source) Close() error {
	return s.stop()
}

// String identifies the source in logs
func (s *Source) String() string {
	return s.path + "@" + strconv.Itoa(s.pos)
}

var (
	_ video.SourceOpener = (*Opener)(nil)
	_ video.FrameSource  = (*Source)(nil)
)
