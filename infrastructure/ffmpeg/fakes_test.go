package ffmpeg

import (
	"bytes"
	"context"
	"io"
	"strconv"
)

type call struct {
	name string
	args []string
}

// fakeRunner records commands and serves canned pipe output
type fakeRunner struct {
	calls    []call
	runErr   error
	output   []byte
	outErr   error
	frames   [][]byte
	closeErr error
	written  bytes.Buffer
	startErr error
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) error {
	r.calls = append(r.calls, call{name, args})
	return r.runErr
}

func (r *fakeRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, call{name, args})
	return r.output, r.outErr
}

func (r *fakeRunner) StartReader(ctx context.Context, name string, args ...string) (io.ReadCloser, error) {
	r.calls = append(r.calls, call{name, args})
	if r.startErr != nil {
		return nil, r.startErr
	}
	start := 0
	for i, a := range args {
		if a == "-ss" && i+1 < len(args) {
			start = firstFrameAfter(args[i+1], 10)
		}
	}
	var buf bytes.Buffer
	for i := start; i < len(r.frames); i++ {
		buf.Write(r.frames[i])
	}
	return &fakePipe{Reader: &buf, closeErr: r.closeErr}, nil
}

func (r *fakeRunner) StartWriter(ctx context.Context, name string, args ...string) (io.WriteCloser, error) {
	r.calls = append(r.calls, call{name, args})
	if r.startErr != nil {
		return nil, r.startErr
	}
	return &fakeSink{w: &r.written, closeErr: r.closeErr}, nil
}

// firstFrameAfter mirrors ffmpeg's accurate input seek: decoding resumes at
// the first frame whose timestamp is not before the "-ss" value
func firstFrameAfter(seconds string, fps float64) int {
	ss, err := strconv.ParseFloat(seconds, 64)
	if err != nil {
		return 0
	}
	frame := 0
	for float64(frame)/fps < ss {
		frame++
	}
	return frame
}

type fakePipe struct {
	io.Reader
	closeErr error
	closed   bool
}

func (p *fakePipe) Close() error {
	p.closed = true
	return p.closeErr
}

type fakeSink struct {
	w        io.Writer
	closeErr error
}

func (s *fakeSink) Write(b []byte) (int, error) { return s.w.Write(b) }
func (s *fakeSink) Close() error                { return s.closeErr }

func indexOf(args []string, v string) int {
	for i, a := range args {
		if a == v {
			return i
		}
	}
	return -1
}

// hasPair reports whether flag is immediately followed by value
func hasPair(args []string, flag, value string) bool {
	i := indexOf(args, flag)
	return i >= 0 && i+1 < len(args) && args[i+1] == value
}
