package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"motel/shared/clock"
)

func TestFixedClock(t *testing.T) {
	start := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	fixed := &clock.Fixed{T: start}

	assert.Equal(t, start, fixed.Now())

	fixed.Advance(45 * time.Minute)
	assert.Equal(t, start.Add(45*time.Minute), fixed.Now())
}

func TestNewIsMonotonicEnough(t *testing.T) {
	c := clock.New()
	first := c.Now()
	second := c.Now()

	assert.False(t, second.Before(first))
}
