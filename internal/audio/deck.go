package audio

import (
	"context"
	"sort"
	"sync"

	"lumina/internal/logger"
	"lumina/internal/model"
)

// Deck holds the audio players of one session's cards. A player is created
// lazily the first time its card is used and released when the card is
// destroyed or the deck is closed.
type Deck struct {
	source    Source
	newOutput OutputFactory
	log       *logger.Logger

	mu      sync.Mutex
	players map[string]*Player
	active  string
	closed  bool
}

func NewDeck(source Source, newOutput OutputFactory, log *logger.Logger) *Deck {
	if log == nil {
		log = logger.Nop()
	}
	if newOutput == nil {
		newOutput = HeadlessFactory
	}
	return &Deck{
		source:    source,
		newOutput: newOutput,
		log:       log,
		players:   make(map[string]*Player),
	}
}

func (d *Deck) playerLocked(lessonID string) (*Player, error) {
	if p, ok := d.players[lessonID]; ok {
		return p, nil
	}
	out, err := d.newOutput()
	if err != nil {
		return nil, err
	}
	p := NewPlayer(lessonID, d.source, out, d.log)
	d.players[lessonID] = p
	return p, nil
}

// activateLocked makes lessonID the visible card and stops every other one.
func (d *Deck) activateLocked(lessonID string) {
	d.active = lessonID
	for id, p := range d.players {
		if id == lessonID {
			p.Activate()
		} else {
			p.Deactivate()
		}
	}
}

// Play presses the play control of the lesson's card. The card becomes the
// active one.
func (d *Deck) Play(ctx context.Context, lesson model.Lesson) model.AudioStatus {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return model.AudioStatus{LessonID: lesson.ID, State: model.AudioIdle}
	}
	p, err := d.playerLocked(lesson.ID)
	if err != nil {
		d.mu.Unlock()
		d.log.Error("[Audio] Output FAILED", "lesson_id", lesson.ID, "error", err)
		return model.AudioStatus{LessonID: lesson.ID, State: model.AudioIdle}
	}
	d.activateLocked(lesson.ID)
	d.mu.Unlock()

	p.Play(ctx, lesson)
	return p.Status()
}

// Activate marks a card as visible. Other cards are deactivated.
func (d *Deck) Activate(lessonID string) model.AudioStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return model.AudioStatus{LessonID: lessonID, State: model.AudioIdle}
	}
	d.activateLocked(lessonID)
	return d.statusLocked(lessonID)
}

// Deactivate marks a card as no longer visible, stopping its playback.
func (d *Deck) Deactivate(lessonID string) model.AudioStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.players[lessonID]; ok {
		p.Deactivate()
	}
	if d.active == lessonID {
		d.active = ""
	}
	return d.statusLocked(lessonID)
}

// Destroy tears down a card's player and releases its output.
func (d *Deck) Destroy(lessonID string) {
	d.mu.Lock()
	p, ok := d.players[lessonID]
	delete(d.players, lessonID)
	if d.active == lessonID {
		d.active = ""
	}
	d.mu.Unlock()

	if ok {
		if err := p.Close(); err != nil {
			d.log.Warn("[Audio] Close FAILED", "lesson_id", lessonID, "error", err)
		}
	}
}

// Status reports the state of a card. Cards without a player are Idle.
func (d *Deck) Status(lessonID string) model.AudioStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.statusLocked(lessonID)
}

func (d *Deck) statusLocked(lessonID string) model.AudioStatus {
	if p, ok := d.players[lessonID]; ok {
		return p.Status()
	}
	return model.AudioStatus{LessonID: lessonID, State: model.AudioIdle, Active: d.active == lessonID}
}

// Loading returns the ids of cards whose audio is being fetched, sorted.
func (d *Deck) Loading() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0)
	for id, p := range d.players {
		if p.State() == model.AudioLoading {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Close releases every player. Later calls are no-ops.
func (d *Deck) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	players := d.players
	d.players = make(map[string]*Player)
	d.active = ""
	d.mu.Unlock()

	for id, p := range players {
		if err := p.Close(); err != nil {
			d.log.Warn("[Audio] Close FAILED", "lesson_id", id, "error", err)
		}
	}
}

// Wait blocks until every player's background loads have returned.
func (d *Deck) Wait() {
	d.mu.Lock()
	players := make([]*Player, 0, len(d.players))
	for _, p := range d.players {
		players = append(players, p)
	}
	d.mu.Unlock()
	for _, p := range players {
		p.Wait()
	}
}
