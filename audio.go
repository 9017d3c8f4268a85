package mixdown

import (
	"github.com/viterin/vek/vek32"
)

// AudioBuffer holds planar float samples: Data[channel][frame]. Samples are
// nominally in [-1, 1] but may exceed it before encoding.
type AudioBuffer struct {
	SampleRate int
	Data       [][]float32
}

// NewAudioBuffer allocates a silent buffer.
func NewAudioBuffer(channels, frames, sampleRate int) AudioBuffer {
	data := make([][]float32, channels)
	for i := range data {
		data[i] = make([]float32, frames)
	}
	return AudioBuffer{SampleRate: sampleRate, Data: data}
}

func (b AudioBuffer) NumChannels() int {
	return len(b.Data)
}

// Frames returns the number of sample frames, i.e. the length of the shortest
// channel.
func (b AudioBuffer) Frames() int {
	if len(b.Data) == 0 {
		return 0
	}
	ret := len(b.Data[0])
	for _, c := range b.Data[1:] {
		ret = min(ret, len(c))
	}
	return ret
}

// Seconds returns the duration of the buffer.
func (b AudioBuffer) Seconds() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// Interleaved returns the samples frame by frame: L0 R0 L1 R1 ...
func (b AudioBuffer) Interleaved() []float32 {
	frames, channels := b.Frames(), len(b.Data)
	ret := make([]float32, frames*channels)
	for c, data := range b.Data {
		for i := 0; i < frames; i++ {
			ret[i*channels+c] = data[i]
		}
	}
	return ret
}

// Peak returns the largest absolute sample value over all channels.
func (b AudioBuffer) Peak() float32 {
	var peak float32
	for _, data := range b.Data {
		if len(data) == 0 {
			continue
		}
		peak = max(peak, vek32.Max(vek32.Abs(data)))
	}
	return peak
}
