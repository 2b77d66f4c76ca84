package cmd

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// Progress displays the advance of a long-running step
type Progress interface {
	Update(done, total int)
	Finish()
}

type noProgress struct{}

func (noProgress) Update(done, total int) {}
func (noProgress) Finish()                {}

// barProgress draws a progress bar on stderr, created on the first update
type barProgress struct {
	description string
	out         io.Writer
	bar         *progressbar.ProgressBar
	total       int
}

// newProgress returns a bar when stderr is a terminal and a silent Progress otherwise
func newProgress(description string) Progress {
	fd := os.Stderr.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return noProgress{}
	}
	return &barProgress{description: description, out: os.Stderr}
}

func (p *barProgress) Update(done, total int) {
	if p.bar == nil {
		limit := total
		if limit <= 0 {
			limit = -1
		}
		p.total = total
		p.bar = progressbar.NewOptions(limit,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription(p.description),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	} else if total > 0 && total != p.total {
		p.total = total
		p.bar.ChangeMax(total)
	}
	_ = p.bar.Set(done)
}

func (p *barProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}
