package drill

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/p-n-ai/pai-study/internal/apperr"
)

const (
	MinSchulteSize         = 3
	MaxSchulteSize         = 7
	DefaultSchulteSize     = 5
	DefaultSchulteDuration = time.Minute
	maxSchulteDuration     = 10 * time.Minute
)

// Schulte shows a shuffled N×N grid of 1..N² and counts down once per
// second while the student finds the numbers in order.
type Schulte struct {
	grid     [][]int
	duration time.Duration
}

// NewSchulte creates a Schulte table drill. A zero seed shuffles randomly;
// any other seed always yields the same grid.
func NewSchulte(size int, duration time.Duration, seed uint64) (*Schulte, error) {
	const op = "drill.NewSchulte"
	if size == 0 {
		size = DefaultSchulteSize
	}
	if duration == 0 {
		duration = DefaultSchulteDuration
	}
	if size < MinSchulteSize || size > MaxSchulteSize {
		return nil, apperr.Validation(op, "size", apperr.ConstraintInvalidValue, fmt.Sprintf("must be between %d and %d", MinSchulteSize, MaxSchulteSize))
	}
	if duration < time.Second || duration > maxSchulteDuration || duration%time.Second != 0 {
		return nil, apperr.Validation(op, "duration", apperr.ConstraintInvalidValue, "must be whole seconds between 1s and 10m")
	}

	var rng *rand.Rand
	if seed == 0 {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	} else {
		rng = rand.New(rand.NewPCG(seed, seed))
	}
	cells := make([]int, size*size)
	for i := range cells {
		cells[i] = i + 1
	}
	rng.Shuffle(len(cells), func(i, j int) { cells[i], cells[j] = cells[j], cells[i] })

	grid := make([][]int, size)
	for r := range grid {
		grid[r] = cells[r*size : (r+1)*size]
	}
	return &Schulte{grid: grid, duration: duration}, nil
}

func (*Schulte) Kind() Kind { return KindSchulte }

// Grid returns the shuffled table.
func (s *Schulte) Grid() [][]int { return s.grid }

// Frames is the grid followed by one tick per second and a done frame when
// time runs out.
func (s *Schulte) Frames() []Frame {
	secs := int(s.duration / time.Second)
	total := len(s.grid) * len(s.grid)
	frames := make([]Frame, 0, secs+2)
	frames = append(frames, Frame{Type: FrameGrid, Grid: s.grid, Remaining: intPtr(secs), Total: total})
	for i := 1; i < secs; i++ {
		frames = append(frames, Frame{Type: FrameTick, At: time.Duration(i) * time.Second, Remaining: intPtr(secs - i), Total: total})
	}
	frames = append(frames, Frame{Type: FrameDone, At: s.duration, Remaining: intPtr(0), Total: total})
	return sequence(frames)
}
