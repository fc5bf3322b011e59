// Package timer emits auto-advance ticks from a dedicated OS thread.
package timer

import (
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrDisconnected is returned by Run when the signal channel is closed
// without the timer having been shut down through Close.
var ErrDisconnected = errors.New("timer: signal channel disconnected")

const idleSleep = 20 * time.Millisecond

type Kind int

const (
	Start Kind = iota
	Update
	Stop
)

type Signal struct {
	Kind     Kind
	Interval uint32 // seconds
}

type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// Repainter is asked to redraw after every tick so an idle host notices it.
type Repainter interface {
	RequestRepaint()
}

type Timer struct {
	signals chan Signal
	ticks   chan struct{}
	closed  chan struct{}
	done    chan struct{}

	clock     Clock
	repainter Repainter
	logger    zerolog.Logger

	closeOnce sync.Once
	err       error
}

type Option func(*Timer)

func WithClock(c Clock) Option {
	return func(t *Timer) { t.clock = c }
}

func WithRepainter(r Repainter) Option {
	return func(t *Timer) { t.repainter = r }
}

func New(logger zerolog.Logger, opts ...Option) *Timer {
	t := &Timer{
		signals: make(chan Signal, 8),
		ticks:   make(chan struct{}, 8),
		closed:  make(chan struct{}),
		done:    make(chan struct{}),
		clock:   systemClock{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Signals is the controller's end of the input channel. Closing it ends the
// timer with ErrDisconnected.
func (t *Timer) Signals() chan<- Signal { return t.signals }

func (t *Timer) Ticks() <-chan struct{} { return t.ticks }

// Done is closed once Run has returned.
func (t *Timer) Done() <-chan struct{} { return t.done }

// Err is valid after Done is closed.
func (t *Timer) Err() error {
	<-t.done
	return t.err
}

func (t *Timer) Send(sig Signal) {
	select {
	case t.signals <- sig:
	case <-t.closed:
	}
}

// Go runs the timer loop on its own goroutine.
func (t *Timer) Go() {
	go func() {
		t.err = t.Run()
		close(t.done)
	}()
}

// Close drops the tick receiver; the loop exits at its next iteration.
func (t *Timer) Close() {
	t.closeOnce.Do(func() { close(t.closed) })
}

// Run is the timer loop. It handles at most one signal per iteration and
// sleeps between checks, carrying any overshoot into the next period.
func (t *Timer) Run() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var (
		running bool
		period  time.Duration
		last    = t.clock.Now()
	)

	for {
		select {
		case <-t.closed:
			return nil
		case sig, ok := <-t.signals:
			if !ok {
				t.logger.Error().Msg("timer signal channel closed")
				return ErrDisconnected
			}
			switch sig.Kind {
			case Start:
				running = true
				period = seconds(sig.Interval)
				last = t.clock.Now()
			case Update:
				period = seconds(sig.Interval)
			case Stop:
				running = false
			}
		default:
		}

		now := t.clock.Now()
		overshoot := now.Sub(last) - period
		if !running || overshoot < 0 {
			t.clock.Sleep(idleSleep)
			continue
		}

		select {
		case <-t.closed:
			return nil
		default:
		}
		select {
		case t.ticks <- struct{}{}:
		default:
			t.logger.Debug().Msg("tick dropped, receiver behind")
		}

		last = now.Add(-overshoot)

		if t.repainter != nil {
			t.repainter.RequestRepaint()
		}
	}
}

func seconds(n uint32) time.Duration {
	return time.Duration(n) * time.Second
}
