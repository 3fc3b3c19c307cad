package model

import (
	"errors"
	"fmt"
)

// AudioState is the playback state of a single lesson card.
type AudioState int

const (
	AudioIdle AudioState = iota
	AudioLoading
	AudioPlaying
)

func (s AudioState) String() string {
	switch s {
	case AudioIdle:
		return "idle"
	case AudioLoading:
		return "loading"
	case AudioPlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON payloads.
func (s AudioState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *AudioState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = AudioIdle
	case "loading":
		*s = AudioLoading
	case "playing":
		*s = AudioPlaying
	default:
		return fmt.Errorf("unknown audio state %q", text)
	}
	return nil
}

// Lesson audio format: little-endian signed 16-bit PCM, mono.
const (
	AudioSampleRate = 24000
	AudioChannels   = 1
	AudioPrecision  = 2 // bytes per sample
)

// AudioStatus describes a card's playback state.
type AudioStatus struct {
	LessonID string     `json:"lesson_id"`
	State    AudioState `json:"state"`
	Active   bool       `json:"active"`
}

// AudioPayloadResponse returns a lesson's audio for remote playback.
type AudioPayloadResponse struct {
	LessonID    string `json:"lesson_id"`
	AudioBase64 string `json:"audio_base64"`
	SampleRate  int    `json:"sample_rate"`
	Channels    int    `json:"channels"`
	Encoding    string `json:"encoding"`
}

// Error codes for HTTP responses
const (
	CodeAudioUnavailable = "AUDIO_UNAVAILABLE"
)

var (
	ErrAudioUnavailable    = errors.New("audio unavailable")
	ErrInvalidAudioPayload = errors.New("invalid audio payload")
	ErrPlayerClosed        = errors.New("player closed")
)
