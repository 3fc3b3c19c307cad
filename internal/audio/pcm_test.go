package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"lumina/internal/model"
)

func encodePCM(samples ...int16) string {
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(s))
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func TestDecodePCM16(t *testing.T) {
	buf, err := DecodePCM16(encodePCM(0, 16384, -16384, 32767))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float64{0, 0.5, -0.5, 0.999969482421875}
	if buf.Len() != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), buf.Len())
	}
	for i, w := range want {
		if math.Abs(buf.Samples[i]-w) > 1e-9 {
			t.Errorf("sample %d: expected %v, got %v", i, w, buf.Samples[i])
		}
	}
	if buf.Format.SampleRate != 24000 || buf.Format.NumChannels != 1 {
		t.Errorf("unexpected format: %+v", buf.Format)
	}
}

func TestDecodePCM16_MinValue(t *testing.T) {
	buf, err := DecodePCM16(encodePCM(-32768))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Samples[0] != -1.0 {
		t.Errorf("expected -1.0, got %v", buf.Samples[0])
	}
}

func TestDecodePCM16_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not base64", "!!!"},
		{"empty", ""},
		{"odd length", base64.StdEncoding.EncodeToString([]byte{1, 2, 3})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePCM16(tt.payload)
			if !errors.Is(err, model.ErrInvalidAudioPayload) {
				t.Errorf("expected ErrInvalidAudioPayload, got %v", err)
			}
		})
	}
}

func TestBufferDuration(t *testing.T) {
	buf := &Buffer{Samples: make([]float64, 24000), Format: Format}
	if got := buf.Duration(); got != time.Second {
		t.Errorf("expected 1s, got %v", got)
	}
}

func TestBufferStreamer(t *testing.T) {
	buf, err := DecodePCM16(encodePCM(16384, -16384, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := buf.Streamer()
	out := make([][2]float64, 2)

	n, ok := s.Stream(out)
	if n != 2 || !ok {
		t.Fatalf("first read: n=%d ok=%v", n, ok)
	}
	if out[0] != [2]float64{0.5, 0.5} || out[1] != [2]float64{-0.5, -0.5} {
		t.Errorf("unexpected samples: %v", out)
	}

	n, ok = s.Stream(out)
	if n != 1 || !ok {
		t.Fatalf("second read: n=%d ok=%v", n, ok)
	}

	n, ok = s.Stream(out)
	if n != 0 || ok {
		t.Errorf("expected drained streamer, got n=%d ok=%v", n, ok)
	}
}
