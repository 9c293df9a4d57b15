package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/p-n-ai/pai-study/internal/curriculum"
	"github.com/p-n-ai/pai-study/internal/progress"
)

func TestSessions(t *testing.T) {
	tests := []struct {
		name       string
		capacity   int
		pref       progress.BreakPreference
		wantN      int
		wantLength int
	}{
		{"two hours medium", 120, progress.BreakMedium, 2, 60},
		{"three hours medium", 180, progress.BreakMedium, 3, 60},
		{"one hour short", 60, progress.BreakShort, 2, 30},
		{"five hours long grows to four", 300, progress.BreakLong, 4, 75},
		{"six hours long", 360, progress.BreakLong, 4, 90},
		{"default preference", 240, "", 4, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, length := sessions(tt.capacity, tt.pref)
			assert.Equal(t, tt.wantN, n)
			assert.Equal(t, tt.wantLength, length)
		})
	}
}

func TestDayCapacities(t *testing.T) {
	weekly := 6.0
	caps := dayCapacities(progress.Profile{DailyStudyHours: 1, AvailableDays: []int{1, 3, 5}, WeeklyTargetHours: &weekly})
	assert.Equal(t, [7]int{0, 120, 0, 120, 0, 120, 0}, caps)

	// Capacity is clamped to 2-4 sessions.
	caps = dayCapacities(progress.Profile{DailyStudyHours: 0.25, AvailableDays: []int{0}})
	assert.Equal(t, 60, caps[0])
	caps = dayCapacities(progress.Profile{DailyStudyHours: 10, AvailableDays: []int{0}})
	assert.Equal(t, 360, caps[0])

	// No days means every day.
	caps = dayCapacities(progress.Profile{DailyStudyHours: 1})
	for d, c := range caps {
		assert.Equal(t, 60, c, "day %d", d)
	}
}

func TestArrangeDay_EasyHardEasy(t *testing.T) {
	mk := func(id string, difficulty int) pick {
		return pick{topic: curriculum.Topic{ID: id, Difficulty: difficulty}}
	}
	ids := func(ps []pick) []string {
		var out []string
		for _, p := range ps {
			out = append(out, p.topic.ID)
		}
		return out
	}

	assert.Equal(t, []string{"a", "d", "c", "b"}, ids(arrangeDay([]pick{mk("c", 3), mk("a", 1), mk("d", 5), mk("b", 2)})))
	assert.Equal(t, []string{"a", "c", "b"}, ids(arrangeDay([]pick{mk("b", 2), mk("c", 4), mk("a", 1)})))
	assert.Equal(t, []string{"a", "b"}, ids(arrangeDay([]pick{mk("b", 2), mk("a", 2)})))
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripFences(tt.in))
	}
}
