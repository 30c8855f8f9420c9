package gifplay

import (
	"io/fs"
	"sync"
	"sync/atomic"
)

// ViewOption configures a View.
type ViewOption func(*viewOptions)

type viewOptions struct {
	data       []byte
	resource   string
	bundle     fs.FS
	repeat     int
	onComplete func()
	exec       Executor
	decoder    *Decoder
}

func defaultViewOptions() viewOptions {
	return viewOptions{
		repeat:  RepeatForever,
		exec:    Inline,
		decoder: defaultDecoder,
	}
}

// WithBytes sets the initial GIF data.
func WithBytes(data []byte) ViewOption {
	return func(o *viewOptions) { o.data = data }
}

// WithResource sets the initial animation to <name>.gif in the bundle.
func WithResource(name string) ViewOption {
	return func(o *viewOptions) { o.resource = name }
}

// WithBundle sets the resource container for WithResource and
// UpdateResource.
func WithBundle(fsys fs.FS) ViewOption {
	return func(o *viewOptions) { o.bundle = fsys }
}

// WithRepeat sets how many times the animation plays before the completion
// callback fires. The default is RepeatForever.
func WithRepeat(n int) ViewOption {
	return func(o *viewOptions) {
		if n < 1 {
			n = RepeatForever
		}
		o.repeat = n
	}
}

// WithCompletion sets a callback run on the executor once each animation
// finishes its repeats.
func WithCompletion(f func()) ViewOption {
	return func(o *viewOptions) { o.onComplete = f }
}

// WithExecutor sets where decoded animations are applied to the player and
// where the completion callback runs. The default is Inline.
func WithExecutor(e Executor) ViewOption {
	return func(o *viewOptions) {
		if e != nil {
			o.exec = e
		}
	}
}

// WithDecoder sets the decoder, for non-default Options.
func WithDecoder(d *Decoder) ViewOption {
	return func(o *viewOptions) {
		if d != nil {
			o.decoder = d
		}
	}
}

// View keeps a Player showing the most recently requested animation.
//
// Decoding runs on a background goroutine per update. Only the result of the
// latest update is applied; results of older updates that finish later are
// dropped. A failed decode clears the player.
type View struct {
	player Player
	opts   viewOptions

	gen    atomic.Uint64
	closed atomic.Bool

	// applyMu makes the generation check and the player call one step
	applyMu sync.Mutex

	// pending counts decodes not yet handed to the executor
	pendingMu sync.Mutex
	pending   int
	idle      *sync.Cond
}

// NewView returns a view driving player. If WithBytes or WithResource is
// given, decoding of that animation starts immediately; WithBytes wins when
// both are set.
func NewView(player Player, opts ...ViewOption) *View {
	o := defaultViewOptions()
	for _, opt := range opts {
		opt(&o)
	}
	v := &View{player: player, opts: o}
	v.idle = sync.NewCond(&v.pendingMu)

	switch {
	case o.data != nil:
		v.Update(o.data)
	case o.resource != "":
		v.UpdateResource(o.resource)
	}
	return v
}

// Update replaces the animation with the one encoded in data.
func (v *View) Update(data []byte) {
	v.start(func(d *Decoder) *Sequence {
		return d.Decode(data)
	})
}

// UpdateResource replaces the animation with <name>.gif from the bundle.
func (v *View) UpdateResource(name string) {
	bundle := v.opts.bundle
	v.start(func(d *Decoder) *Sequence {
		return d.DecodeResource(bundle, name)
	})
}

// Wait blocks until every started decode has been handed to the executor.
// It may run concurrently with Update.
func (v *View) Wait() {
	v.pendingMu.Lock()
	defer v.pendingMu.Unlock()
	for v.pending > 0 {
		v.idle.Wait()
	}
}

// Close drops pending results and clears the player. Later updates are
// ignored.
func (v *View) Close() {
	if v.closed.Swap(true) {
		return
	}
	v.gen.Add(1)
	v.opts.exec(func() {
		v.applyMu.Lock()
		defer v.applyMu.Unlock()
		v.player.Clear()
	})
}

func (v *View) start(decode func(*Decoder) *Sequence) {
	if v.closed.Load() {
		return
	}
	gen := v.gen.Add(1)

	v.pendingMu.Lock()
	v.pending++
	v.pendingMu.Unlock()

	go func() {
		defer v.done()
		seq := decode(v.opts.decoder)
		v.opts.exec(func() { v.apply(gen, seq) })
	}()
}

func (v *View) done() {
	v.pendingMu.Lock()
	defer v.pendingMu.Unlock()
	v.pending--
	if v.pending == 0 {
		v.idle.Broadcast()
	}
}

// apply runs on the executor. Holding applyMu across the check and the
// player call keeps an older result from landing after a newer one.
func (v *View) apply(gen uint64, seq *Sequence) {
	v.applyMu.Lock()
	defer v.applyMu.Unlock()

	if v.gen.Load() != gen || v.closed.Load() {
		Logger().Debug("gifplay: dropping stale decode", "generation", gen)
		return
	}
	if seq == nil {
		Logger().Info("gifplay: clearing view", "generation", gen)
		v.player.Clear()
		return
	}
	Logger().Info("gifplay: playing",
		"generation", gen, "frames", len(seq.Frames), "duration", seq.Duration)
	v.player.Play(seq, v.opts.repeat, v.completion())
}

// completion wraps the user callback so it runs once, on the executor.
func (v *View) completion() func() {
	f := v.opts.onComplete
	if f == nil {
		return nil
	}
	var once sync.Once
	return func() {
		v.opts.exec(func() { once.Do(f) })
	}
}
