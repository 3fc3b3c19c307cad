package audio

import (
	"context"
	"sync"

	"lumina/internal/logger"
	"lumina/internal/model"
)

// Source supplies the audio payload for a lesson, fetching it when needed.
// ok is false when no audio could be produced.
type Source interface {
	LessonAudio(ctx context.Context, lesson model.Lesson) (payload string, ok bool)
}

// Player is the audio control of one lesson card.
//
// States move Idle -> Loading -> Playing -> Idle. Pressing play while Playing
// stops playback; pressing it while Loading does nothing. A load that
// completes after the card was deactivated or closed is discarded without
// starting playback; the Source is still free to cache it.
type Player struct {
	lessonID string
	source   Source
	output   Output
	log      *logger.Logger

	mu       sync.Mutex
	state    model.AudioState
	active   bool
	closed   bool
	gen      uint64
	playback Playback

	loads sync.WaitGroup
}

func NewPlayer(lessonID string, source Source, output Output, log *logger.Logger) *Player {
	if log == nil {
		log = logger.Nop()
	}
	return &Player{
		lessonID: lessonID,
		source:   source,
		output:   output,
		log:      log,
		state:    model.AudioIdle,
		active:   true,
	}
}

// State returns the current playback state.
func (p *Player) State() model.AudioState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Status returns a snapshot suitable for clients.
func (p *Player) Status() model.AudioStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return model.AudioStatus{LessonID: p.lessonID, State: p.state, Active: p.active}
}

// Play handles a press of the play control and returns the resulting state.
// Lessons that already carry audio start immediately; otherwise the payload
// is loaded in the background and the returned state is Loading.
func (p *Player) Play(ctx context.Context, lesson model.Lesson) model.AudioState {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return model.AudioIdle
	}

	switch p.state {
	case model.AudioPlaying:
		p.stopLocked()
		p.log.Info("[Audio] Stop OK", "lesson_id", p.lessonID)
		return p.state
	case model.AudioLoading:
		return p.state
	}

	p.active = true
	if lesson.HasAudio() {
		p.startLocked(lesson.AudioBase64)
		return p.state
	}

	p.state = model.AudioLoading
	gen := p.gen
	p.loads.Add(1)
	go p.load(context.WithoutCancel(ctx), lesson, gen)
	return p.state
}

func (p *Player) load(ctx context.Context, lesson model.Lesson, gen uint64) {
	defer p.loads.Done()

	payload, ok := p.source.LessonAudio(ctx, lesson)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	if p.gen != gen || !p.active {
		p.log.Info("[Audio] Load discarded: card no longer active", "lesson_id", p.lessonID)
		p.state = model.AudioIdle
		return
	}
	if !ok {
		p.log.Warn("[Audio] Load FAILED: no audio", "lesson_id", p.lessonID)
		p.state = model.AudioIdle
		return
	}
	p.startLocked(payload)
}

func (p *Player) startLocked(payload string) {
	if p.playback != nil {
		p.playback.Stop()
		p.playback = nil
	}

	buf, err := DecodePCM16(payload)
	if err != nil {
		p.log.Error("[Audio] Play FAILED: decode", "lesson_id", p.lessonID, "error", err)
		p.state = model.AudioIdle
		return
	}

	p.gen++
	gen := p.gen
	pb, err := p.output.Play(buf, func() { p.finished(gen) })
	if err != nil {
		p.log.Error("[Audio] Play FAILED: output", "lesson_id", p.lessonID, "error", err)
		p.state = model.AudioIdle
		return
	}

	p.playback = pb
	p.state = model.AudioPlaying
	p.log.Info("[Audio] Play OK", "lesson_id", p.lessonID, "samples", buf.Len(), "duration", buf.Duration())
}

func (p *Player) finished(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen || p.state != model.AudioPlaying {
		return
	}
	p.playback = nil
	p.state = model.AudioIdle
	p.log.Debug("[Audio] Playback ended", "lesson_id", p.lessonID)
}

// stopLocked halts playback and invalidates any pending load or end callback.
func (p *Player) stopLocked() {
	p.gen++
	if p.playback != nil {
		p.playback.Stop()
		p.playback = nil
	}
	if p.state == model.AudioPlaying {
		p.state = model.AudioIdle
	}
}

// Activate marks the card as the visible one.
func (p *Player) Activate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = true
}

// Deactivate force-stops playback. A load in flight stays Loading until it
// completes, then settles to Idle without playing.
func (p *Player) Deactivate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return
	}
	p.active = false
	p.stopLocked()
}

// Close stops playback and releases the output. Safe to call more than once.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.stopLocked()
	p.closed = true
	p.active = false
	p.state = model.AudioIdle
	return p.output.Close()
}

// Wait blocks until background loads started by Play have returned.
func (p *Player) Wait() {
	p.loads.Wait()
}
