package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	clk := New()
	require.NotNil(t, clk)

	before := time.Now().UTC().Add(-time.Second)
	got := clk.Now()
	after := time.Now().UTC().Add(time.Second)

	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.After(before) && got.Before(after), "expected %v between %v and %v", got, before, after)
}

func TestClockNowTruncates(t *testing.T) {
	t.Parallel()

	got := New().Now()
	assert.Zero(t, got.Nanosecond()%int(time.Microsecond))

	ms := NewWithPrecision(time.Millisecond).Now()
	assert.Zero(t, ms.Nanosecond()%int(time.Millisecond))
}

func TestClockNowMonotonic(t *testing.T) {
	t.Parallel()

	clk := NewWithPrecision(0)
	first := clk.Now()
	second := clk.Now()
	assert.False(t, second.Before(first), "expected %v >= %v", second, first)
}
