package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"

	"lumina/internal/model"
)

// SpeakerBufferSize is the device buffer used when the speaker is initialised.
const SpeakerBufferSize = 100 * time.Millisecond

var (
	speakerOnce sync.Once
	speakerErr  error
)

// initSpeaker opens the process-wide device at the lesson sample rate.
func initSpeaker() error {
	speakerOnce.Do(func() {
		sr := Format.SampleRate
		if err := speaker.Init(sr, sr.N(SpeakerBufferSize)); err != nil {
			speakerErr = fmt.Errorf("failed to initialize speaker: %w", err)
		}
	})
	return speakerErr
}

// ShutdownSpeaker releases the audio device. Call once on process exit.
func ShutdownSpeaker() {
	if initSpeaker() == nil {
		speaker.Close()
	}
}

// SpeakerOutput plays buffers on the local sound device through beep's mixer.
type SpeakerOutput struct {
	mu      sync.Mutex
	closed  bool
	current *speakerPlayback
}

// SpeakerFactory is an OutputFactory producing SpeakerOutputs.
func SpeakerFactory() (Output, error) {
	if err := initSpeaker(); err != nil {
		return nil, err
	}
	return &SpeakerOutput{}, nil
}

type speakerPlayback struct {
	ctrl *beep.Ctrl
}

// Stop detaches the streamer; the mixer drops a Ctrl with no streamer.
func (p *speakerPlayback) Stop() {
	speaker.Lock()
	p.ctrl.Streamer = nil
	speaker.Unlock()
}

func (o *SpeakerOutput) Play(buf *Buffer, done func()) (Playback, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, model.ErrPlayerClosed
	}
	if o.current != nil {
		o.current.Stop()
	}

	// The callback runs on the mixer goroutine with the speaker locked, so
	// done is handed off to avoid lock-order inversions with the caller.
	seq := beep.Seq(buf.Streamer(), beep.Callback(func() { go done() }))
	pb := &speakerPlayback{ctrl: &beep.Ctrl{Streamer: seq}}
	speaker.Play(pb.ctrl)

	o.current = pb
	return pb, nil
}

func (o *SpeakerOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	if o.current != nil {
		o.current.Stop()
		o.current = nil
	}
	return nil
}
