package drill

import (
	"fmt"
	"strings"
	"time"

	"github.com/p-n-ai/pai-study/internal/apperr"
)

const (
	MinFlash     = 10 * time.Millisecond
	MaxFlash     = 5 * time.Second
	DefaultFlash = 100 * time.Millisecond
	DefaultBlank = time.Second
	maxItems     = 200
)

// Tachistoscope flashes each item briefly, then blanks the screen so the
// student can recall it.
type Tachistoscope struct {
	items []string
	flash time.Duration
	blank time.Duration
}

// NewTachistoscope creates a tachistoscope drill. Zero durations use the
// defaults.
func NewTachistoscope(items []string, flash, blank time.Duration) (*Tachistoscope, error) {
	const op = "drill.NewTachistoscope"
	var clean []string
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			clean = append(clean, it)
		}
	}
	if len(clean) == 0 {
		return nil, apperr.Validation(op, "items", apperr.ConstraintRequired, "is required")
	}
	if len(clean) > maxItems {
		return nil, apperr.Validation(op, "items", apperr.ConstraintInvalidValue, fmt.Sprintf("must have at most %d entries", maxItems))
	}
	if flash == 0 {
		flash = DefaultFlash
	}
	if blank == 0 {
		blank = DefaultBlank
	}
	if flash < MinFlash || flash > MaxFlash {
		return nil, apperr.Validation(op, "flash", apperr.ConstraintInvalidValue, fmt.Sprintf("must be between %s and %s", MinFlash, MaxFlash))
	}
	if blank < 0 || blank > time.Minute {
		return nil, apperr.Validation(op, "blank", apperr.ConstraintInvalidValue, "must be between 0 and 1m")
	}
	return &Tachistoscope{items: clean, flash: flash, blank: blank}, nil
}

func (*Tachistoscope) Kind() Kind { return KindTachistoscope }

// Frames alternates a flash frame and a blank frame per item.
func (t *Tachistoscope) Frames() []Frame {
	frames := make([]Frame, 0, 2*len(t.items)+1)
	var at time.Duration
	for _, it := range t.items {
		frames = append(frames,
			Frame{Type: FrameFlash, At: at, Text: it, Total: len(t.items)},
			Frame{Type: FrameBlank, At: at + t.flash, Total: len(t.items)},
		)
		at += t.flash + t.blank
	}
	frames = append(frames, Frame{Type: FrameDone, At: at, Total: len(t.items)})
	return sequence(frames)
}
