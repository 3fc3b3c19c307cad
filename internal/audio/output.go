package audio

import (
	"sync"
	"time"

	"lumina/internal/model"
)

// Output renders decoded buffers on some audio device. Each card owns one Output.
//
// Play starts rendering buf and calls done once playback reaches the end.
// done must never be invoked synchronously from Play or Playback.Stop. It may
// still arrive after Stop, so callers have to tolerate a late call.
type Output interface {
	Play(buf *Buffer, done func()) (Playback, error)
	// Close stops anything still playing and releases the output.
	Close() error
}

// Playback is a single in-progress rendering started by Output.Play.
type Playback interface {
	Stop()
}

// OutputFactory creates the Output for a new card.
type OutputFactory func() (Output, error)

// HeadlessOutput simulates playback with a timer for hosts without an audio
// device. It completes after the buffer's real duration.
type HeadlessOutput struct {
	mu      sync.Mutex
	closed  bool
	current *timerPlayback
}

func NewHeadlessOutput() *HeadlessOutput {
	return &HeadlessOutput{}
}

// HeadlessFactory is an OutputFactory producing HeadlessOutputs.
func HeadlessFactory() (Output, error) {
	return NewHeadlessOutput(), nil
}

type timerPlayback struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func (p *timerPlayback) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	p.timer.Stop()
}

func (o *HeadlessOutput) Play(buf *Buffer, done func()) (Playback, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, model.ErrPlayerClosed
	}
	if o.current != nil {
		o.current.Stop()
	}

	pb := &timerPlayback{}
	pb.mu.Lock()
	pb.timer = time.AfterFunc(buf.Duration(), func() {
		pb.mu.Lock()
		stopped := pb.stopped
		pb.stopped = true
		pb.mu.Unlock()
		if !stopped {
			done()
		}
	})
	pb.mu.Unlock()

	o.current = pb
	return pb, nil
}

func (o *HeadlessOutput) Close() error {
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
