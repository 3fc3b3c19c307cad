package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gopxl/beep/v2"

	"lumina/internal/model"
)

// Format is the format of every lesson payload: mono 16-bit PCM at 24 kHz.
var Format = beep.Format{
	SampleRate:  beep.SampleRate(model.AudioSampleRate),
	NumChannels: model.AudioChannels,
	Precision:   model.AudioPrecision,
}

// Buffer is a decoded, playable mono payload.
type Buffer struct {
	Samples []float64
	Format  beep.Format
}

// DecodePCM16 decodes a base64 little-endian signed 16-bit mono payload.
// Each sample is divided by 32768, so values fall in [-1.0, 1.0).
func DecodePCM16(payload string) (*Buffer, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidAudioPayload, err)
	}
	if len(raw) == 0 || len(raw)%model.AudioPrecision != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of samples", model.ErrInvalidAudioPayload, len(raw))
	}

	samples := make([]float64, len(raw)/model.AudioPrecision)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		samples[i] = float64(v) / 32768.0
	}
	return &Buffer{Samples: samples, Format: Format}, nil
}

// Len returns the number of samples.
func (b *Buffer) Len() int {
	return len(b.Samples)
}

// Duration returns the playback length at the buffer's sample rate.
func (b *Buffer) Duration() time.Duration {
	return b.Format.SampleRate.D(len(b.Samples))
}

// Streamer returns a fresh beep.Streamer over the buffer. The mono signal is
// written to both output channels.
func (b *Buffer) Streamer() beep.Streamer {
	return &bufferStreamer{samples: b.Samples}
}

type bufferStreamer struct {
	samples []float64
	pos     int
}

func (s *bufferStreamer) Stream(out [][2]float64) (int, bool) {
	if s.pos >= len(s.samples) {
		return 0, false
	}
	n := 0
	for n < len(out) && s.pos < len(s.samples) {
		v := s.samples[s.pos]
		out[n][0] = v
		out[n][1] = v
		n++
		s.pos++
	}
	return n, true
}

func (s *bufferStreamer) Err() error {
	return nil
}
