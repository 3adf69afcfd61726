package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
)

// Progress renders link repair progress. The bar is created lazily once the
// total is known.
type Progress struct {
	writer      io.Writer
	description string
	bar         *progressbar.ProgressBar
	last        int
}

// NewProgress creates a progress renderer writing to w.
func NewProgress(w io.Writer, description string) *Progress {
	return &Progress{writer: w, description: description}
}

// Update matches engine.ProgressFunc.
func (p *Progress) Update(done, total int) {
	if total <= 0 {
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.writer),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[cyan][bold]"+p.description+"[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				if _, err := fmt.Fprintln(p.writer); err != nil {
					slog.Warn("Failed to write newline after progress bar", "error", err)
				}
			}),
		)
	}
	if done <= p.last {
		return
	}
	if err := p.bar.Add(done - p.last); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
	p.last = done
}

// Done reports how many steps were rendered.
func (p *Progress) Done() int {
	return p.last
}
