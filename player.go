package gifplay

import (
	"image"
	"sync"
	"time"
)

// Player plays a Sequence at its tick rate. It is the surface a View drives.
type Player interface {
	// Play replaces the current animation with seq and starts it right away.
	// repeat is the number of passes over seq.Frames, RepeatForever to loop.
	// done, if not nil, is called once after the last pass; it is not called
	// when the animation is replaced or cleared first.
	Play(seq *Sequence, repeat int, done func())
	// Clear stops playback and blanks the surface.
	Clear()
}

// Executor runs f on the goroutine that owns the player, usually a UI loop.
type Executor func(f func())

// Inline runs f on the calling goroutine.
func Inline(f func()) { f() }

// TickerPlayer is a software Player. It hands every frame to a render
// function on a time.Ticker. render receives nil on Clear.
//
// Play, Stop and Clear are safe for concurrent use. render runs on the
// player's goroutine and must not call Play, Stop or Clear; done may.
type TickerPlayer struct {
	render func(image.Image)

	// playMu serializes Play, Stop and Clear across stop-then-install
	playMu sync.Mutex

	// mu guards cur; loop takes it to detach a finished run
	mu  sync.Mutex
	cur *tickerRun
}

type tickerRun struct {
	stop   chan struct{}
	exited chan struct{}
}

var _ Player = (*TickerPlayer)(nil)

// NewTickerPlayer returns a player that renders frames with render.
func NewTickerPlayer(render func(image.Image)) *TickerPlayer {
	return &TickerPlayer{render: render}
}

// Play implements Player. A repeat count below 1 loops forever.
func (p *TickerPlayer) Play(seq *Sequence, repeat int, done func()) {
	p.playMu.Lock()
	defer p.playMu.Unlock()

	p.stop()
	if seq == nil || len(seq.Frames) == 0 {
		return
	}
	if repeat < 1 {
		repeat = RepeatForever
	}

	run := &tickerRun{stop: make(chan struct{}), exited: make(chan struct{})}
	p.mu.Lock()
	p.cur = run
	p.mu.Unlock()

	go p.loop(run, seq, repeat, done)
}

// Clear implements Player.
func (p *TickerPlayer) Clear() {
	p.playMu.Lock()
	defer p.playMu.Unlock()

	p.stop()
	p.render(nil)
}

// Stop halts playback and keeps the last frame on the surface.
func (p *TickerPlayer) Stop() {
	p.playMu.Lock()
	defer p.playMu.Unlock()

	p.stop()
}

// stop ends the current run and waits for its goroutine.
func (p *TickerPlayer) stop() {
	p.mu.Lock()
	run := p.cur
	p.cur = nil
	p.mu.Unlock()
	if run == nil {
		return
	}
	close(run.stop)
	<-run.exited
}

func (p *TickerPlayer) loop(run *tickerRun, seq *Sequence, repeat int, done func()) {
	tick := seq.Tick
	if tick <= 0 {
		tick = DefaultMinTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for pass := 0; repeat == RepeatForever || pass < repeat; pass++ {
		for _, f := range seq.Frames {
			p.render(f)
			select {
			case <-run.stop:
				close(run.exited)
				return
			case <-ticker.C:
			}
		}
	}

	// detach before done, so done may start the next animation
	p.mu.Lock()
	finished := p.cur == run
	if finished {
		p.cur = nil
	}
	p.mu.Unlock()
	close(run.exited)

	if finished && done != nil {
		done()
	}
}
