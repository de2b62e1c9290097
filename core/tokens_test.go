package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("a"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 1, EstimateTokens("héé"), "counts runes, not bytes")
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "0:00", FormatTimestamp(0))
	assert.Equal(t, "0:42", FormatTimestamp(42*time.Second))
	assert.Equal(t, "12:05", FormatTimestamp(12*time.Minute+5*time.Second))
	assert.Equal(t, "1:02:03", FormatTimestamp(time.Hour+2*time.Minute+3*time.Second))
	assert.Equal(t, "0:00", FormatTimestamp(-time.Second))
	assert.Equal(t, "[0:40-0:50]", FormatRange(40*time.Second, 50*time.Second))
}
