package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/carga/internal/service"
	"github.com/schollz/progressbar/v3"
)

// SaveProgressBar draws a progress bar for chunked record writes. The bar is
// created on the first update, when the total is known.
type SaveProgressBar struct {
	writer      io.Writer
	bar         *progressbar.ProgressBar
	description string
}

// NewSaveProgressBar creates a progress bar writing to w.
func NewSaveProgressBar(w io.Writer, description string) *SaveProgressBar {
	return &SaveProgressBar{writer: w, description: description}
}

// Callback returns the function storage calls after each chunk.
func (p *SaveProgressBar) Callback() service.SaveProgress {
	return func(done, total int) {
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
		if err := p.bar.Set(done); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}
}

// Finish closes the bar if one was drawn.
func (p *SaveProgressBar) Finish() {
	if p.bar == nil {
		return
	}
	if err := p.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
}
