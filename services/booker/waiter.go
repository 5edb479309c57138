package booker

import (
	"context"
	"time"
)

// WaitResult reports how a wait ended.
type WaitResult int

const (
	// WaitDone means the awaited condition holds.
	WaitDone WaitResult = iota
	// WaitDeadline means the wait gave up because its deadline passed.
	WaitDeadline
	// WaitCancelled means the worker is shutting down.
	WaitCancelled
)

// Waiter blocks a worker until the moment a booking attempt makes sense
// again. A waiter is single-use.
type Waiter interface {
	// Wait blocks until the condition holds, the deadline passes or the
	// context is cancelled.
	Wait(ctx context.Context) (WaitResult, error)
	// Message is the timeline entry to record before blocking. Empty
	// when nothing should be recorded.
	Message() string
	// Pending reports whether Wait would block right now.
	Pending(now time.Time) bool
}

// NullWaiter never blocks.
type NullWaiter struct{}

func (NullWaiter) Wait(context.Context) (WaitResult, error) { return WaitDone, nil }
func (NullWaiter) Message() string                          { return "" }
func (NullWaiter) Pending(time.Time) bool                   { return false }

// TimeWaiter blocks until a fixed instant.
type TimeWaiter struct {
	Until time.Time
	Msg   string
}

func (w *TimeWaiter) Wait(ctx context.Context) (WaitResult, error) {
	delay := time.Until(w.Until)
	if delay <= 0 {
		return WaitDone, nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return WaitDone, nil
	case <-ctx.Done():
		return WaitCancelled, nil
	}
}

func (w *TimeWaiter) Message() string { return w.Msg }

func (w *TimeWaiter) Pending(now time.Time) bool { return w.Until.After(now) }

// EventSource delivers booking-hub events for a box.
type EventSource interface {
	// WaitForEvent blocks until the hub emits one of the expected events
	// for the room of the box and date, returning false when maxDatetime
	// passed first.
	WaitForEvent(ctx context.Context, boxURL string, date time.Time, events []string, maxDatetime time.Time) (bool, error)
}

// EventWaiter blocks until the booking hub signals a change for the
// class day, giving up at MaxDatetime.
type EventWaiter struct {
	Source      EventSource
	BoxURL      string
	Date        time.Time
	Events      []string
	MaxDatetime time.Time
	Msg         string
}

func (w *EventWaiter) Wait(ctx context.Context) (WaitResult, error) {
	found, err := w.Source.WaitForEvent(ctx, w.BoxURL, w.Date, w.Events, w.MaxDatetime)
	if err != nil {
		if ctx.Err() != nil {
			return WaitCancelled, nil
		}
		return WaitDeadline, err
	}
	if !found {
		if ctx.Err() != nil {
			return WaitCancelled, nil
		}
		return WaitDeadline, nil
	}
	return WaitDone, nil
}

func (w *EventWaiter) Message() string { return w.Msg }

func (w *EventWaiter) Pending(time.Time) bool { return true }
