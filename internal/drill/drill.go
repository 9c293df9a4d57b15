// Package drill runs timed reading and attention drills as a stream of
// frames: an RSVP reader, a tachistoscope and a Schulte table. Each drill is
// a precomputed schedule played back by a single goroutine that stops as
// soon as its context ends.
package drill

import (
	"context"
	"fmt"
	"time"

	"github.com/p-n-ai/pai-study/internal/apperr"
)

// Kind names a drill.
type Kind string

const (
	KindRSVP          Kind = "rsvp"
	KindTachistoscope Kind = "tachistoscope"
	KindSchulte       Kind = "schulte"
)

// Frame types.
const (
	FrameWord  = "word"
	FrameFlash = "flash"
	FrameBlank = "blank"
	FrameGrid  = "grid"
	FrameTick  = "tick"
	FrameDone  = "done"
)

// Frame is one message of a drill stream.
type Frame struct {
	Type string `json:"type"`
	Seq  int    `json:"seq"`
	// At is the offset from the start of the drill.
	At        time.Duration `json:"-"`
	AtMillis  int64         `json:"atMs"`
	Text      string        `json:"text,omitempty"`
	Focus     *int          `json:"focus,omitempty"`
	Grid      [][]int       `json:"grid,omitempty"`
	Remaining *int          `json:"remainingSeconds,omitempty"`
	Total     int           `json:"total,omitempty"`
}

// Drill is a validated drill ready to run.
type Drill interface {
	Kind() Kind
	// Frames returns the whole schedule in order.
	Frames() []Frame
}

// Params carries the settings of every drill kind; each kind reads its own.
type Params struct {
	Text      string
	WPM       int
	ChunkSize int
	Items     []string
	Flash     time.Duration
	Blank     time.Duration
	Size      int
	Duration  time.Duration
	Seed      uint64
}

// New validates params for kind and builds the drill.
func New(kind Kind, p Params) (Drill, error) {
	var (
		d   Drill
		err error
	)
	switch kind {
	case KindRSVP:
		d, err = NewRSVP(p.Text, p.WPM, p.ChunkSize)
	case KindTachistoscope:
		d, err = NewTachistoscope(p.Items, p.Flash, p.Blank)
	case KindSchulte:
		d, err = NewSchulte(p.Size, p.Duration, p.Seed)
	default:
		return nil, apperr.Validation("drill.New", "kind", apperr.ConstraintInvalidValue, fmt.Sprintf("unknown drill %q", kind))
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Emit receives frames. Returning an error stops the drill.
type Emit func(ctx context.Context, f Frame) error

// Runner plays drill schedules in real time.
type Runner struct {
	wait func(ctx context.Context, d time.Duration) error
}

// NewRunner creates a runner backed by the wall clock.
func NewRunner() *Runner {
	return &Runner{wait: sleep}
}

// Run emits the drill's frames at their offsets. It returns the context's
// error when cancelled and nil after the last frame.
func (r *Runner) Run(ctx context.Context, d Drill, emit Emit) error {
	var at time.Duration
	for _, f := range d.Frames() {
		if err := r.wait(ctx, f.At-at); err != nil {
			return err
		}
		at = f.At
		if err := emit(ctx, f); err != nil {
			return fmt.Errorf("emitting %s frame: %w", f.Type, err)
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// sequence numbers frames and fills AtMillis.
func sequence(frames []Frame) []Frame {
	for i := range frames {
		frames[i].Seq = i
		frames[i].AtMillis = frames[i].At.Milliseconds()
	}
	return frames
}

func intPtr(v int) *int { return &v }
