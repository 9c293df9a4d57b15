package drill

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/p-n-ai/pai-study/internal/apperr"
)

const (
	MinWPM       = 60
	MaxWPM       = 1500
	MaxChunkSize = 5
	maxWords     = 5000
)

// RSVP shows a text a few words at a time at a fixed reading speed.
type RSVP struct {
	words []string
	wpm   int
	chunk int
}

// NewRSVP creates an RSVP drill. A zero chunk shows one word at a time.
func NewRSVP(text string, wpm, chunk int) (*RSVP, error) {
	const op = "drill.NewRSVP"
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, apperr.Validation(op, "text", apperr.ConstraintRequired, "is required")
	}
	if len(words) > maxWords {
		return nil, apperr.Validation(op, "text", apperr.ConstraintInvalidValue, fmt.Sprintf("must have at most %d words", maxWords))
	}
	if wpm < MinWPM || wpm > MaxWPM {
		return nil, apperr.Validation(op, "wpm", apperr.ConstraintInvalidValue, fmt.Sprintf("must be between %d and %d", MinWPM, MaxWPM))
	}
	if chunk == 0 {
		chunk = 1
	}
	if chunk < 1 || chunk > MaxChunkSize {
		return nil, apperr.Validation(op, "chunk", apperr.ConstraintInvalidValue, fmt.Sprintf("must be between 1 and %d", MaxChunkSize))
	}
	return &RSVP{words: words, wpm: wpm, chunk: chunk}, nil
}

func (*RSVP) Kind() Kind { return KindRSVP }

// Frames returns one word frame per chunk. A chunk stays on screen for as
// long as its words take at the configured speed.
func (r *RSVP) Frames() []Frame {
	perWord := time.Minute / time.Duration(r.wpm)
	frames := make([]Frame, 0, len(r.words)/r.chunk+2)
	var at time.Duration
	for i := 0; i < len(r.words); i += r.chunk {
		chunk := r.words[i:min(i+r.chunk, len(r.words))]
		f := Frame{Type: FrameWord, At: at, Text: strings.Join(chunk, " "), Total: len(r.words)}
		if len(chunk) == 1 {
			f.Focus = intPtr(focusIndex(chunk[0]))
		}
		frames = append(frames, f)
		at += perWord * time.Duration(len(chunk))
	}
	frames = append(frames, Frame{Type: FrameDone, At: at, Total: len(r.words)})
	return sequence(frames)
}

// focusIndex is the rune the eye should fix on, slightly left of center.
func focusIndex(word string) int {
	switch n := utf8.RuneCountInString(word); {
	case n <= 1:
		return 0
	case n <= 5:
		return 1
	case n <= 9:
		return 2
	case n <= 13:
		return 3
	default:
		return 4
	}
}
