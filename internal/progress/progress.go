package progress

import (
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Reporter receives progress for a known number of steps
type Reporter interface {
	Start(total int)
	Increment()
	Finish()
}

// Bar renders a progress bar on stderr
type Bar struct {
	desc string
	bar  *progressbar.ProgressBar
}

// nop discards progress
type nop struct{}

func (nop) Start(int)  {}
func (nop) Increment() {}
func (nop) Finish()    {}

// New returns a terminal progress bar when enabled, otherwise a no-op reporter
func New(enabled bool, desc string) Reporter {
	if !enabled {
		return nop{}
	}
	return &Bar{desc: desc}
}

func (p *Bar) Start(total int) {
	if total <= 0 {
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(p.desc),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(theme),
	)
}

func (p *Bar) Increment() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Add(1)
}

func (p *Bar) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}

var theme = progressbar.Theme{
	Saucer:        "=",
	SaucerHead:    ">",
	SaucerPadding: " ",
	BarStart:      "[",
	BarEnd:        "]",
}

// Enabled reports whether stderr is an interactive terminal
func Enabled() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// WrapReader counts bytes read from r on a byte progress bar.
// size may be -1 when the total is unknown.
func WrapReader(enabled bool, r io.Reader, size int64, desc string) io.Reader {
	if !enabled {
		return r
	}
	bar := progressbar.NewOptions64(size,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(theme),
	)
	pr := progressbar.NewReader(r, bar)
	return &pr
}

// StartSpinner shows an indeterminate spinner until the returned func is called
func StartSpinner(enabled bool, desc string) func() {
	if !enabled {
		return func() {}
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(9),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWidth(10),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = bar.Add(1)
			case <-done:
				_ = bar.Finish()
				return
			}
		}
	}()
	return func() { close(done) }
}
