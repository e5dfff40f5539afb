// Package queue owns the in-session review queue and mastery state machine.
package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/verte-zerg/recall/internal/model"
)

// ErrRecordFailed wraps a recorder failure. The failed operation left the
// queue, stats, and item untouched; check with errors.Is.
var ErrRecordFailed = errors.New("queue: recording review failed")

// Recorder persists a single review outcome. It is called before any local
// mutation; a failure aborts the operation.
type Recorder interface {
	RecordReview(ctx context.Context, key string, correct bool) error
}

// Fetcher supplies the due items for a fresh session.
type Fetcher interface {
	FetchDue(ctx context.Context) ([]*model.Item, error)
}

// Stats counts judged answers within one session.
type Stats struct {
	Correct   int
	Incorrect int
}

// Engine drives one review session. Items exit from the head of the queue and
// re-enter at the tail until they reach an absorbing correct-answer state.
// The engine is single-owner and not safe for concurrent use.
type Engine struct {
	recorder    Recorder
	fetcher     Fetcher
	onRemaining func(int)

	queue    []*model.Item
	stats    Stats
	complete bool
}

// New creates an engine with an empty queue. onRemaining, if non-nil, is
// called with the new remaining count each time an item exits for good.
func New(recorder Recorder, fetcher Fetcher, onRemaining func(int)) *Engine {
	return &Engine{recorder: recorder, fetcher: fetcher, onRemaining: onRemaining}
}

// Head returns the current head item, or nil when the queue is empty.
func (e *Engine) Head() *model.Item {
	if len(e.queue) == 0 {
		return nil
	}
	return e.queue[0]
}

// Remaining returns the number of items still in the queue.
func (e *Engine) Remaining() int {
	return len(e.queue)
}

// Stats returns the session counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Complete reports whether the session queue has been emptied.
func (e *Engine) Complete() bool {
	return e.complete
}

// Process judges the head item. The item argument must be the current head;
// calling Process on an empty queue or with any other item is a broken caller
// invariant and panics.
//
// The outcome is recorded through the Recorder first. On recorder failure the
// operation aborts with ErrRecordFailed and nothing local changes. On success
// the stats counter for the judgment is incremented and the mastery
// transition is applied:
//
//	incorrect (any state)   -> relearning1, requeued at the tail
//	relearning1 + correct   -> relearning2, requeued at the tail
//	new + correct           -> learned, exits
//	learned + correct       -> exits
//	relearning2 + correct   -> exits
func (e *Engine) Process(ctx context.Context, item *model.Item, correct bool) error {
	if len(e.queue) == 0 {
		panic("queue: Process called on an empty queue")
	}
	if item != e.queue[0] {
		panic("queue: Process called with an item that is not the queue head")
	}

	if err := e.recorder.RecordReview(ctx, item.Key, correct); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrRecordFailed, item.Key, err)
	}

	e.queue = e.queue[1:]
	if correct {
		e.stats.Correct++
	} else {
		e.stats.Incorrect++
	}

	next, requeue := transition(item.State, correct)
	item.State = next
	if requeue {
		e.queue = append(e.queue, item)
	} else if e.onRemaining != nil {
		e.onRemaining(len(e.queue))
	}

	if len(e.queue) == 0 {
		e.complete = true
	}
	return nil
}

// Reset starts a fresh session: it fetches a new due batch, then clears the
// stats and completion flag and replaces the queue. A fetch failure leaves
// the engine untouched.
func (e *Engine) Reset(ctx context.Context) error {
	items, err := e.fetcher.FetchDue(ctx)
	if err != nil {
		return fmt.Errorf("fetch due items: %w", err)
	}
	e.queue = items
	e.stats = Stats{}
	e.complete = false
	return nil
}

// transition returns the item's next state and whether it stays queued.
// An incorrect answer from any state funnels into relearning1; escaping
// relearning takes two consecutive correct answers.
func transition(s model.ItemState, correct bool) (next model.ItemState, requeue bool) {
	if !correct {
		return model.StateRelearning1, true
	}
	switch s {
	case model.StateRelearning1:
		return model.StateRelearning2, true
	case model.StateNew:
		return model.StateLearned, false
	default:
		// learned and relearning2 exit unchanged.
		return s, false
	}
}
