// Package speech reads assistant replies aloud.
package speech

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/bz888/leanne/internal/generation"
	"github.com/bz888/leanne/internal/logger"
)

const (
	wordsPerSecond  = 2.5
	minDuration     = 2 * time.Second
	refreshInterval = 250 * time.Millisecond

	MinRate = 0.5
	MaxRate = 2.0
)

// Utterance is one request to an Engine. Offset is the position to start
// from, measured at Rate.
type Utterance struct {
	Text   string
	Volume float64
	Rate   float64
	Offset time.Duration
}

// Engine produces audio. Speak returns immediately; exactly one of onEnd or
// onError is called when the utterance finishes, fails or is canceled.
type Engine interface {
	Speak(u Utterance, onEnd func(), onError func(error))
	Cancel()
	Pause()
	Resume()
}

type State struct {
	Content  string
	Playing  bool
	Paused   bool
	Elapsed  time.Duration
	Duration time.Duration
	Volume   float64
	Rate     float64
}

type PlayerOptions struct {
	Volume float64
	Rate   float64
	// Tick is the progress refresh period.
	Tick time.Duration
	Now  func() time.Time
}

// Player tracks what is being spoken and restarts the engine when settings
// change. Callbacks from superseded utterances are ignored.
type Player struct {
	engine Engine
	tick   time.Duration
	now    func() time.Time
	log    *logger.Logger

	// engineMu orders calls into the engine.
	engineMu sync.Mutex

	mu        sync.Mutex
	utter     generation.Source
	content   string
	playing   bool
	paused    bool
	startedAt time.Time
	offset    time.Duration
	duration  time.Duration
	volume    float64
	rate      float64
	onChange  func(State)
}

func NewPlayer(engine Engine, opts PlayerOptions) *Player {
	if opts.Tick <= 0 {
		opts.Tick = refreshInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rate == 0 {
		opts.Rate = 1
	}
	return &Player{
		engine: engine,
		tick:   opts.Tick,
		now:    opts.Now,
		log:    logger.NewLogger("speech player"),
		volume: clamp(opts.Volume, 0, 1),
		rate:   clamp(opts.Rate, MinRate, MaxRate),
	}
}

// EstimateDuration guesses how long text takes to speak at rate.
func EstimateDuration(text string, rate float64) time.Duration {
	if rate <= 0 {
		rate = 1
	}
	words := len(strings.Fields(text))
	d := time.Duration(float64(words) / wordsPerSecond / rate * float64(time.Second))
	if d < minDuration {
		return minDuration
	}
	return d
}

// OnChange registers fn to be called after every state change and on each
// progress tick while playing.
func (p *Player) OnChange(fn func(State)) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// Toggle stops text if it is the one playing, otherwise speaks it.
func (p *Player) Toggle(text string) {
	p.mu.Lock()
	same := p.playing && p.content == text
	p.mu.Unlock()

	if same {
		p.Stop()
		return
	}
	p.speak(text, 0)
}

func (p *Player) speak(text string, offset time.Duration) {
	if strings.TrimSpace(text) == "" {
		return
	}

	p.engineMu.Lock()
	defer p.engineMu.Unlock()

	// The new token must exist before Cancel, which may report the previous
	// utterance through onError right away.
	p.mu.Lock()
	token := p.utter.Next()
	p.content = text
	p.playing = true
	p.paused = false
	p.duration = EstimateDuration(text, p.rate)
	p.offset = min(offset, p.duration)
	p.startedAt = p.now()
	u := Utterance{Text: text, Volume: p.volume, Rate: p.rate, Offset: p.offset}
	state := p.stateLocked()
	fn := p.onChange
	p.mu.Unlock()

	p.engine.Cancel()

	p.log.Info("Speaking utterance", token.ID(), "from", u.Offset)
	go p.refresh(token)
	notify(fn, state)

	p.engine.Speak(u,
		func() { p.finish(token, nil) },
		func(err error) { p.finish(token, err) },
	)
}

func (p *Player) refresh(token generation.Token) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for range ticker.C {
		p.mu.Lock()
		if !token.Valid() {
			p.mu.Unlock()
			return
		}
		state := p.stateLocked()
		fn := p.onChange
		p.mu.Unlock()
		notify(fn, state)
	}
}

func (p *Player) finish(token generation.Token, err error) {
	p.mu.Lock()
	if !token.Valid() {
		p.mu.Unlock()
		return
	}
	if err != nil {
		p.log.Error("Utterance", token.ID(), "failed:", err)
	}
	p.utter.Invalidate()
	p.clearLocked()
	state := p.stateLocked()
	fn := p.onChange
	p.mu.Unlock()
	notify(fn, state)
}

// Stop silences the engine and forgets the current text.
func (p *Player) Stop() {
	p.engineMu.Lock()
	defer p.engineMu.Unlock()

	p.mu.Lock()
	p.utter.Invalidate()
	p.clearLocked()
	state := p.stateLocked()
	fn := p.onChange
	p.mu.Unlock()

	p.engine.Cancel()
	notify(fn, state)
}

func (p *Player) TogglePause() {
	p.engineMu.Lock()
	defer p.engineMu.Unlock()

	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return
	}
	paused := p.paused
	if paused {
		p.startedAt = p.now()
	} else {
		p.offset = p.elapsedLocked()
	}
	p.paused = !paused
	state := p.stateLocked()
	fn := p.onChange
	p.mu.Unlock()

	if paused {
		p.engine.Resume()
	} else {
		p.engine.Pause()
	}
	notify(fn, state)
}

// SetVolume sets the volume in [0, 1], restarting playback at the current
// position if something is loaded.
func (p *Player) SetVolume(volume float64) {
	p.mu.Lock()
	p.volume = clamp(volume, 0, 1)
	text, pos, restart := p.content, p.elapsedLocked(), p.playing
	p.mu.Unlock()

	if restart {
		p.speak(text, pos)
	}
}

// SetRate sets the speaking rate in [MinRate, MaxRate]. A loaded utterance is
// restarted at the same point of the text.
func (p *Player) SetRate(rate float64) {
	p.mu.Lock()
	old := p.rate
	p.rate = clamp(rate, MinRate, MaxRate)
	text, restart := p.content, p.playing
	pos := time.Duration(float64(p.elapsedLocked()) * old / p.rate)
	p.mu.Unlock()

	if restart {
		p.speak(text, pos)
	}
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

func (p *Player) stateLocked() State {
	return State{
		Content:  p.content,
		Playing:  p.playing,
		Paused:   p.paused,
		Elapsed:  p.elapsedLocked(),
		Duration: p.duration,
		Volume:   p.volume,
		Rate:     p.rate,
	}
}

func (p *Player) elapsedLocked() time.Duration {
	if !p.playing {
		return 0
	}
	elapsed := p.offset
	if !p.paused {
		elapsed += p.now().Sub(p.startedAt)
	}
	return min(elapsed, p.duration)
}

func (p *Player) clearLocked() {
	p.content = ""
	p.playing = false
	p.paused = false
	p.offset = 0
	p.duration = 0
}

func notify(fn func(State), state State) {
	if fn != nil {
		fn(state)
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
