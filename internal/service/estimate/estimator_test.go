package estimate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPosition(t *testing.T) {
	tests := []struct {
		name         string
		tokenNumber  int64
		currentToken int64
		want         int64
	}{
		{"ahead of current", 10, 4, 6},
		{"next in line", 5, 4, 1},
		{"currently served", 4, 4, 0},
		{"already passed", 3, 7, 0},
		{"fresh queue", 1, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Position(tt.tokenNumber, tt.currentToken))
		})
	}
}

func TestPositionNeverNegative(t *testing.T) {
	for current := int64(0); current < 50; current++ {
		assert.GreaterOrEqual(t, Position(10, current), int64(0))
	}
}

func TestWaitMinutes(t *testing.T) {
	assert.Equal(t, int64(60), WaitMinutes(6, 10))
	assert.Equal(t, int64(0), WaitMinutes(0, 10))
}

func TestETA(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(30*time.Minute), ETA(now, 3, 10))
	assert.Equal(t, now, ETA(now, 0, 10))
}

func TestEstimatorDeterministic(t *testing.T) {
	now := time.Now()
	first := ETA(now, 7, 15)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ETA(now, 7, 15))
	}
}
