package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/clock"
)

func TestSystemClockReportsConsistentRecentTime(t *testing.T) {
	c := clock.New()
	before := time.Now().UnixMilli()
	got := c.NowMs()
	after := time.Now().UnixMilli()

	assert.GreaterOrEqual(t, got, uint64(before))
	assert.LessOrEqual(t, got, uint64(after))
}

func TestFakeClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := clock.NewFake(start)

	assert.Equal(t, start, f.Local())
	assert.Equal(t, uint64(start.UnixMilli()), f.NowMs())

	f.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), f.Local())

	later := start.Add(24 * time.Hour)
	f.Set(later)
	assert.Equal(t, later, f.Local())
}
