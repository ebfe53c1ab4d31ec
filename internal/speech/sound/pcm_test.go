package sound

import (
	"math"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
)

func TestOffsetSamples(t *testing.T) {
	stereo := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: 2, SampleRate: 1000},
		Data:   make([]int, 4001),
	}

	assert.Equal(t, 0, offsetSamples(stereo, 0))
	assert.Equal(t, 0, offsetSamples(stereo, -time.Second))
	assert.Equal(t, 1000, offsetSamples(stereo, 500*time.Millisecond))
	assert.Equal(t, 4000, offsetSamples(stereo, time.Hour), "clamped to the last whole frame")
	assert.Equal(t, 0, offsetSamples(&audio.IntBuffer{Data: make([]int, 10)}, time.Second))
}

func TestScaleInto(t *testing.T) {
	dst := []int16{9, 9, 9, 9}

	n := scaleInto(dst, []int{1000, -1000}, 0.5, 16)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int16{500, -500, 0, 0}, dst)

	n = scaleInto(dst, []int{math.MaxInt16, math.MinInt16, 1, 2, 3}, 2, 16)
	assert.Equal(t, 4, n)
	assert.Equal(t, []int16{math.MaxInt16, math.MinInt16, 2, 4}, dst)

	scaleInto(dst, []int{1 << 16}, 1, 24)
	assert.Equal(t, int16(256), dst[0])
}

func TestScaleInto_EightBitIsUnsigned(t *testing.T) {
	dst := make([]int16, 3)

	n := scaleInto(dst, []int{128, 255, 0}, 1, 8)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int16{0, 127 << 8, math.MinInt16}, dst)
}

func TestTo16(t *testing.T) {
	assert.Equal(t, 1000, to16(1000, 16))
	assert.Equal(t, 1000, to16(1000, 0), "unknown depth is left as is")
	assert.Equal(t, 256, to16(1<<16, 24))
	assert.Equal(t, 16, to16(1, 12))
	assert.Equal(t, -32768, to16(0, 8))
}

func TestCalculateRMS16(t *testing.T) {
	assert.Zero(t, calculateRMS16(nil))
	assert.InDelta(t, 3.0, calculateRMS16([]int16{3, -3, 3, -3}), 1e-9)
}
