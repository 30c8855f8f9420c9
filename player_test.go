package gifplay

import (
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recorder collects what a TickerPlayer renders.
type recorder struct {
	mu     sync.Mutex
	frames []image.Image
}

func (r *recorder) render(img image.Image) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, img)
}

func (r *recorder) rendered() []image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]image.Image(nil), r.frames...)
}

func testSequence(n int) *Sequence {
	seq := &Sequence{Tick: time.Millisecond}
	for i := 0; i < n; i++ {
		seq.Frames = append(seq.Frames, image.NewRGBA(image.Rect(0, 0, 1, 1)))
	}
	seq.Duration = time.Duration(n) * seq.Tick
	return seq
}

func TestTickerPlayerRepeat(t *testing.T) {
	rec := &recorder{}
	p := NewTickerPlayer(rec.render)
	seq := testSequence(3)

	done := make(chan struct{})
	calls := 0
	p.Play(seq, 2, func() {
		calls++
		close(done)
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("playback did not complete")
	}
	require.Equal(t, 1, calls)

	got := rec.rendered()
	require.Len(t, got, 6)
	for i, f := range got {
		require.Same(t, seq.Frames[i%3], f)
	}
}

func TestTickerPlayerStop(t *testing.T) {
	rec := &recorder{}
	p := NewTickerPlayer(rec.render)

	fired := make(chan struct{}, 1)
	p.Play(testSequence(2), RepeatForever, func() { fired <- struct{}{} })
	require.Eventually(t, func() bool { return len(rec.rendered()) > 4 }, 5*time.Second, time.Millisecond)

	p.Stop()
	n := len(rec.rendered())
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, n, len(rec.rendered()), "frames rendered after Stop")
	require.Empty(t, fired)
}

func TestTickerPlayerReplace(t *testing.T) {
	rec := &recorder{}
	p := NewTickerPlayer(rec.render)

	first := make(chan struct{}, 1)
	second := make(chan struct{})
	p.Play(testSequence(1), RepeatForever, func() { first <- struct{}{} })

	seq := testSequence(1)
	p.Play(seq, 1, func() { close(second) })

	select {
	case <-second:
	case <-time.After(5 * time.Second):
		t.Fatal("second animation did not complete")
	}
	require.Empty(t, first)
	got := rec.rendered()
	require.Same(t, seq.Frames[0], got[len(got)-1])
}

func TestTickerPlayerClear(t *testing.T) {
	rec := &recorder{}
	p := NewTickerPlayer(rec.render)

	p.Play(testSequence(2), RepeatForever, nil)
	require.Eventually(t, func() bool { return len(rec.rendered()) > 0 }, 5*time.Second, time.Millisecond)

	p.Clear()
	got := rec.rendered()
	require.Nil(t, got[len(got)-1])

	// nothing to play is a no-op
	p.Play(nil, 1, func() { t.Error("done called for a nil sequence") })
	p.Play(&Sequence{}, 1, func() { t.Error("done called for an empty sequence") })
}

func TestTickerPlayerDoneStartsNext(t *testing.T) {
	rec := &recorder{}
	p := NewTickerPlayer(rec.render)

	done := make(chan struct{})
	p.Play(testSequence(1), 1, func() {
		// done runs after the run detached, so this must not deadlock
		p.Play(testSequence(1), 1, func() { close(done) })
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("chained animation did not complete")
	}
}

func TestTickerPlayerConcurrentPlay(t *testing.T) {
	rec := &recorder{}
	p := NewTickerPlayer(rec.render)

	// concurrent Play calls must leave exactly one run behind
	for round := 0; round < 200; round++ {
		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p.Play(testSequence(2), RepeatForever, nil)
			}()
		}
		wg.Wait()
	}
	p.Stop()

	n := len(rec.rendered())
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, n, len(rec.rendered()), "an orphaned run kept rendering after Stop")
}
