package timer

import (
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	runtime.Gosched()
}

type recorder struct {
	mu    sync.Mutex
	clock *fakeClock
	at    []time.Time
}

func (r *recorder) RequestRepaint() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.at = append(r.at, r.clock.Now())
}

func (r *recorder) times() []time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Time(nil), r.at...)
}

func waitTicks(t *testing.T, tm *Timer, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-tm.Ticks():
		case <-time.After(5 * time.Second):
			t.Fatalf("tick %d never arrived", i)
		}
	}
}

// advance waits until the timer loop has slept through d of fake time.
func advance(clock *fakeClock, d time.Duration) {
	start := clock.Now()
	for clock.Now().Sub(start) < d {
		runtime.Gosched()
	}
}

func TestTimer_TicksStayWithinDriftBound(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	rec := &recorder{clock: clock}
	tm := New(zerolog.Nop(), WithClock(clock), WithRepainter(rec))
	tm.Go()
	defer tm.Close()

	const n = 5
	period := time.Second
	tm.Send(Signal{Kind: Start, Interval: 1})
	waitTicks(t, tm, n)

	deadline := time.Now().Add(5 * time.Second)
	for len(rec.times()) < n {
		if time.Now().After(deadline) {
			t.Fatalf("want %d repaints, got %d", n, len(rec.times()))
		}
		runtime.Gosched()
	}

	at := rec.times()
	span := at[n-1].Sub(at[0])
	low := time.Duration(n)*period - period
	high := time.Duration(n)*period + idleSleep
	if span < low || span > high {
		t.Fatalf("span %v outside [%v, %v]", span, low, high)
	}
	for i := 1; i < n; i++ {
		gap := at[i].Sub(at[i-1])
		if gap < period-idleSleep || gap > period+idleSleep {
			t.Fatalf("gap %d is %v", i, gap)
		}
	}
}

func TestTimer_StopAndUpdate(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	rec := &recorder{clock: clock}
	tm := New(zerolog.Nop(), WithClock(clock), WithRepainter(rec))
	tm.Go()
	defer tm.Close()

	tm.Send(Signal{Kind: Start, Interval: 2})
	waitTicks(t, tm, 1)
	tm.Send(Signal{Kind: Update, Interval: 5})
	waitTicks(t, tm, 2)

	tm.Send(Signal{Kind: Stop})
	advance(clock, 30*time.Second)
	for drained := false; !drained; {
		select {
		case <-tm.Ticks():
		default:
			drained = true
		}
	}

	advance(clock, 30*time.Second)
	select {
	case <-tm.Ticks():
		t.Fatalf("tick after stop")
	default:
	}
}

func TestTimer_FullTickBufferDoesNotStall(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	rec := &recorder{clock: clock}
	tm := New(zerolog.Nop(), WithClock(clock), WithRepainter(rec))
	tm.Go()

	tm.Send(Signal{Kind: Start, Interval: 1})
	want := cap(tm.ticks) + 4
	deadline := time.Now().Add(5 * time.Second)
	for len(rec.times()) < want {
		if time.Now().After(deadline) {
			t.Fatalf("timer stalled after %d ticks", len(rec.times()))
		}
		runtime.Gosched()
	}

	if got := len(tm.Ticks()); got != cap(tm.ticks) {
		t.Fatalf("want a full buffer of %d ticks, got %d", cap(tm.ticks), got)
	}

	tm.Close()
	if err := tm.Err(); err != nil {
		t.Fatalf("want nil, got %v", err)
	}
}

func TestTimer_ClosedInputDisconnects(t *testing.T) {
	tm := New(zerolog.Nop(), WithClock(&fakeClock{now: time.Unix(0, 0)}))
	tm.Go()
	close(tm.Signals())

	if err := tm.Err(); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("want ErrDisconnected, got %v", err)
	}
}

func TestTimer_CloseEndsCleanly(t *testing.T) {
	tm := New(zerolog.Nop(), WithClock(&fakeClock{now: time.Unix(0, 0)}))
	tm.Go()
	tm.Close()
	tm.Close()

	if err := tm.Err(); err != nil {
		t.Fatalf("want nil, got %v", err)
	}
}
