package daemon

import (
	"context"
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers into a single call of fire. A call
// happens once no trigger arrived for the quiet window, or at the latest
// maxDelay after the first trigger of a burst.
type Debouncer struct {
	quiet    time.Duration
	maxDelay time.Duration
	fire     func(reason string, count int)
	in       chan string

	readyOnce sync.Once
	ready     chan struct{}
}

// NewDebouncer returns a Debouncer. maxDelay below quiet is raised to quiet.
func NewDebouncer(quiet, maxDelay time.Duration, fire func(reason string, count int)) *Debouncer {
	if maxDelay < quiet {
		maxDelay = quiet
	}
	return &Debouncer{
		quiet:    quiet,
		maxDelay: maxDelay,
		fire:     fire,
		in:       make(chan string, 64),
		ready:    make(chan struct{}),
	}
}

// Ready is closed once Run is consuming triggers.
func (d *Debouncer) Ready() <-chan struct{} { return d.ready }

// Trigger records a change. It never blocks; when the buffer is full the
// trigger is already covered by the pending burst.
func (d *Debouncer) Trigger(reason string) {
	select {
	case d.in <- reason:
	default:
	}
}

// Run processes triggers until ctx is done.
func (d *Debouncer) Run(ctx context.Context) {
	quietTimer := time.NewTimer(time.Hour)
	quietTimer.Stop()
	maxTimer := time.NewTimer(time.Hour)
	maxTimer.Stop()
	defer quietTimer.Stop()
	defer maxTimer.Stop()

	d.readyOnce.Do(func() { close(d.ready) })

	var (
		pending bool
		count   int
		reason  string
	)
	emit := func() {
		quietTimer.Stop()
		maxTimer.Stop()
		if pending {
			d.fire(reason, count)
		}
		pending, count, reason = false, 0, ""
	}

	for {
		select {
		case <-ctx.Done():
			return
		case r := <-d.in:
			if !pending {
				pending = true
				maxTimer.Reset(d.maxDelay)
			}
			count++
			reason = r
			quietTimer.Reset(d.quiet)
		case <-quietTimer.C:
			emit()
		case <-maxTimer.C:
			emit()
		}
	}
}
