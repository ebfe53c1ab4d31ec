package sound

import (
	"math"
	"time"

	"github.com/go-audio/audio"
)

// offsetSamples converts a playback position into an index into the
// interleaved samples of buf, aligned to a whole frame.
func offsetSamples(buf *audio.IntBuffer, offset time.Duration) int {
	if offset <= 0 || buf.Format == nil {
		return 0
	}
	channels := max(buf.Format.NumChannels, 1)
	frames := int(offset.Seconds() * float64(buf.Format.SampleRate))
	return min(frames*channels, len(buf.Data)-len(buf.Data)%channels)
}

// scaleInto writes src scaled by volume into dst as 16 bit samples and
// returns how many were written. The rest of dst is zeroed. Samples of other
// bit depths are normalised to 16 bits first.
func scaleInto(dst []int16, src []int, volume float64, bitDepth int) int {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		v := float64(to16(src[i], bitDepth)) * volume
		dst[i] = int16(math.Max(math.MinInt16, math.Min(math.MaxInt16, math.Round(v))))
	}
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return n
}

// to16 maps a sample of the given bit depth onto the signed 16 bit range.
// 8 bit WAV samples are unsigned.
func to16(sample, bitDepth int) int {
	switch {
	case bitDepth == 8:
		return (sample - 128) << 8
	case bitDepth > 16:
		return sample >> (bitDepth - 16)
	case bitDepth > 0 && bitDepth < 16:
		return sample << (16 - bitDepth)
	}
	return sample
}

// calculateRMS16 calculates the root-mean-square of the audio buffer for int16 samples.
func calculateRMS16(buffer []int16) float64 {
	if len(buffer) == 0 {
		return 0
	}
	var sumSquares float64
	for _, sample := range buffer {
		val := float64(sample)
		sumSquares += val * val
	}
	return math.Sqrt(sumSquares / float64(len(buffer)))
}
