// Package progress shows per-stage progress bars on a terminal.
package progress

import (
	"io"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
)

const (
	defaultUpdateFrequency = 250 * time.Millisecond
	stopTimeout            = 2 * time.Second
)

// Display renders one tracker per pipeline stage.
type Display struct {
	pw       progress.Writer
	mu       sync.Mutex
	trackers []*progress.Tracker
	started  bool
	stopped  bool
	rendered chan struct{}
}

// Option configures a Display.
type Option func(*Display)

// WithUpdateFrequency sets how often the bars are redrawn.
func WithUpdateFrequency(d time.Duration) Option {
	return func(disp *Display) {
		if d > 0 {
			disp.pw.SetUpdateFrequency(d)
		}
	}
}

// New creates a display writing to out.
func New(out io.Writer, opts ...Option) *Display {
	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(25)
	pw.SetMessageLength(24)
	pw.SetStyle(progress.StyleDefault)
	pw.SetTrackerPosition(progress.PositionRight)
	pw.SetUpdateFrequency(defaultUpdateFrequency)
	pw.Style().Options.PercentFormat = "%4.1f%%"
	pw.Style().Visibility.ETA = false
	pw.Style().Visibility.TrackerOverall = false
	pw.Style().Visibility.Value = true

	d := &Display{pw: pw, rendered: make(chan struct{})}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start begins rendering in the background.
func (d *Display) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	go func() {
		defer close(d.rendered)
		d.pw.Render()
	}()
}

// Stage adds a tracker for a stage with total units of work.
func (d *Display) Stage(name string, total int) *Step {
	t := &progress.Tracker{
		Message: name,
		Total:   int64(total),
		Units:   progress.UnitsDefault,
	}
	d.mu.Lock()
	d.trackers = append(d.trackers, t)
	d.mu.Unlock()
	d.pw.AppendTracker(t)
	return &Step{tracker: t}
}

// Stop marks every tracker done and waits briefly for the final frame. Calls
// after the first are no-ops.
func (d *Display) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for _, t := range d.trackers {
		if !t.IsDone() {
			t.MarkAsDone()
		}
	}
	started := d.started
	d.mu.Unlock()

	d.pw.Stop()
	if !started {
		return
	}
	select {
	case <-d.rendered:
	case <-time.After(stopTimeout):
	}
}

// Step reports progress for one stage. Safe for concurrent use.
type Step struct {
	tracker *progress.Tracker
}

// Increment adds one finished unit.
func (s *Step) Increment() {
	s.tracker.Increment(1)
}

// Done marks the stage finished.
func (s *Step) Done() {
	s.tracker.MarkAsDone()
}

// Value returns the number of finished units.
func (s *Step) Value() int64 {
	return s.tracker.Value()
}
