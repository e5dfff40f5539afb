package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/verte-zerg/recall/internal/model"
)

type fakeRecorder struct {
	calls []string
	err   error
}

func (r *fakeRecorder) RecordReview(_ context.Context, key string, correct bool) error {
	if r.err != nil {
		return r.err
	}
	mark := "-"
	if correct {
		mark = "+"
	}
	r.calls = append(r.calls, key+mark)
	return nil
}

type fakeFetcher struct {
	items []*model.Item
	err   error
}

func (f *fakeFetcher) FetchDue(context.Context) ([]*model.Item, error) {
	return f.items, f.err
}

func newEngine(t *testing.T, items []*model.Item) (*Engine, *fakeRecorder, *[]int) {
	t.Helper()
	rec := &fakeRecorder{}
	var remaining []int
	e := New(rec, &fakeFetcher{items: items}, func(n int) { remaining = append(remaining, n) })
	if err := e.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	return e, rec, &remaining
}

func item(key string, state model.ItemState) *model.Item {
	return &model.Item{Key: key, Meanings: []string{key + " meaning"}, State: state}
}

func keys(e *Engine) []string {
	out := make([]string, 0, e.Remaining())
	for _, it := range e.queue {
		out = append(out, it.Key)
	}
	return out
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestIncorrectLearnedRequeuesAsRelearning(t *testing.T) {
	a := item("A", model.StateLearned)
	b := item("B", model.StateNew)
	e, _, _ := newEngine(t, []*model.Item{a, b})

	if err := e.Process(context.Background(), a, false); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if a.State != model.StateRelearning1 {
		t.Errorf("A state = %v, want relearning1", a.State)
	}
	if got := keys(e); !equalKeys(got, []string{"B", "A"}) {
		t.Errorf("queue = %v, want [B A]", got)
	}
	if st := e.Stats(); st.Incorrect != 1 || st.Correct != 0 {
		t.Errorf("stats = %+v, want 1 incorrect", st)
	}
	if e.Complete() {
		t.Errorf("session must not be complete while items remain")
	}
}

func TestIncorrectFromAnyStateFunnelsToRelearning(t *testing.T) {
	for _, start := range []model.ItemState{
		model.StateNew, model.StateLearned, model.StateRelearning1, model.StateRelearning2,
	} {
		a := item("A", start)
		e, _, _ := newEngine(t, []*model.Item{a})
		if err := e.Process(context.Background(), a, false); err != nil {
			t.Fatalf("%v: Process: %v", start, err)
		}
		if a.State != model.StateRelearning1 {
			t.Errorf("from %v: state = %v, want relearning1", start, a.State)
		}
		if e.Remaining() != 1 {
			t.Errorf("from %v: remaining = %d, want requeued", start, e.Remaining())
		}
	}
}

func TestCorrectRelearning1AdvancesAndStaysQueued(t *testing.T) {
	a := item("A", model.StateRelearning1)
	e, _, _ := newEngine(t, []*model.Item{a})

	if err := e.Process(context.Background(), a, true); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if a.State != model.StateRelearning2 {
		t.Errorf("state = %v, want relearning2", a.State)
	}
	if got := keys(e); !equalKeys(got, []string{"A"}) {
		t.Errorf("queue = %v, want [A]", got)
	}
	if e.Complete() {
		t.Errorf("complete = true, want false")
	}
}

func TestCorrectRelearning2Exits(t *testing.T) {
	a := item("A", model.StateRelearning2)
	e, _, remaining := newEngine(t, []*model.Item{a})

	if err := e.Process(context.Background(), a, true); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if e.Remaining() != 0 {
		t.Errorf("remaining = %d, want 0", e.Remaining())
	}
	if !e.Complete() {
		t.Errorf("complete = false, want true")
	}
	if st := e.Stats(); st.Correct != 1 {
		t.Errorf("stats = %+v, want 1 correct", st)
	}
	if len(*remaining) != 1 || (*remaining)[0] != 0 {
		t.Errorf("remaining notifications = %v, want [0]", *remaining)
	}
}

func TestCorrectNewExitsAsLearned(t *testing.T) {
	a := item("A", model.StateNew)
	e, _, _ := newEngine(t, []*model.Item{a})

	if err := e.Process(context.Background(), a, true); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if a.State != model.StateLearned {
		t.Errorf("state = %v, want learned", a.State)
	}
	if e.Remaining() != 0 || !e.Complete() {
		t.Errorf("remaining = %d complete = %v, want item to exit", e.Remaining(), e.Complete())
	}
}

func TestRelearningEscapeTakesTwoCorrectAnswers(t *testing.T) {
	a := item("A", model.StateLearned)
	e, rec, remaining := newEngine(t, []*model.Item{a})
	ctx := context.Background()

	if err := e.Process(ctx, a, false); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := e.Process(ctx, a, true); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if a.State != model.StateRelearning2 || e.Remaining() != 1 {
		t.Fatalf("after one correct: state = %v remaining = %d", a.State, e.Remaining())
	}
	if err := e.Process(ctx, a, true); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if e.Remaining() != 0 || !e.Complete() {
		t.Errorf("remaining = %d complete = %v, want exit after second correct", e.Remaining(), e.Complete())
	}
	if st := e.Stats(); st.Correct != 2 || st.Incorrect != 1 {
		t.Errorf("stats = %+v, want 2 correct 1 incorrect", st)
	}
	wantCalls := []string{"A-", "A+", "A+"}
	if !equalKeys(rec.calls, wantCalls) {
		t.Errorf("recorder calls = %v, want %v", rec.calls, wantCalls)
	}
	// Exactly one exit, so exactly one remaining-count notification.
	if len(*remaining) != 1 {
		t.Errorf("remaining notifications = %v, want one", *remaining)
	}
}

func TestRecorderFailureLeavesEngineUntouched(t *testing.T) {
	a := item("A", model.StateLearned)
	rec := &fakeRecorder{}
	e := New(rec, &fakeFetcher{items: []*model.Item{a}}, nil)
	if err := e.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	cause := errors.New("disk full")
	rec.err = cause
	err := e.Process(context.Background(), a, true)
	if !errors.Is(err, ErrRecordFailed) {
		t.Fatalf("err = %v, want ErrRecordFailed", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("err = %v, want wrapped cause", err)
	}
	if a.State != model.StateLearned {
		t.Errorf("state = %v, want unchanged learned", a.State)
	}
	if got := keys(e); !equalKeys(got, []string{"A"}) {
		t.Errorf("queue = %v, want unchanged [A]", got)
	}
	if st := e.Stats(); st.Correct != 0 || st.Incorrect != 0 {
		t.Errorf("stats = %+v, want unchanged", st)
	}

	// The same call succeeds once the recorder recovers.
	rec.err = nil
	if err := e.Process(context.Background(), a, true); err != nil {
		t.Fatalf("Process after recovery: %v", err)
	}
	if st := e.Stats(); st.Correct != 1 {
		t.Errorf("stats = %+v, want 1 correct", st)
	}
}

func TestProcessOnEmptyQueuePanics(t *testing.T) {
	e := New(&fakeRecorder{}, &fakeFetcher{}, nil)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on empty queue")
		}
	}()
	_ = e.Process(context.Background(), item("A", model.StateNew), true)
}

func TestProcessWithNonHeadItemPanics(t *testing.T) {
	a := item("A", model.StateNew)
	b := item("B", model.StateNew)
	e, _, _ := newEngine(t, []*model.Item{a, b})
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on non-head item")
		}
	}()
	_ = e.Process(context.Background(), b, true)
}

func TestResetReplacesQueueAndClearsStats(t *testing.T) {
	a := item("A", model.StateRelearning2)
	e, _, _ := newEngine(t, []*model.Item{a})
	ctx := context.Background()

	if err := e.Process(ctx, a, true); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !e.Complete() {
		t.Fatalf("expected completed session")
	}

	fresh := []*model.Item{item("B", model.StateNew), item("C", model.StateLearned)}
	e.fetcher = &fakeFetcher{items: fresh}
	if err := e.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got := keys(e); !equalKeys(got, []string{"B", "C"}) {
		t.Errorf("queue = %v, want [B C]", got)
	}
	if st := e.Stats(); st.Correct != 0 || st.Incorrect != 0 {
		t.Errorf("stats = %+v, want zeroed", st)
	}
	if e.Complete() {
		t.Errorf("complete = true, want cleared")
	}
}

func TestResetFailureLeavesEngineUntouched(t *testing.T) {
	a := item("A", model.StateNew)
	e, _, _ := newEngine(t, []*model.Item{a})

	e.fetcher = &fakeFetcher{err: errors.New("db closed")}
	if err := e.Reset(context.Background()); err == nil {
		t.Fatalf("expected error from failing fetcher")
	}
	if got := keys(e); !equalKeys(got, []string{"A"}) {
		t.Errorf("queue = %v, want unchanged [A]", got)
	}
}

func TestHeadFollowsQueueOrder(t *testing.T) {
	a := item("A", model.StateLearned)
	b := item("B", model.StateLearned)
	e, _, _ := newEngine(t, []*model.Item{a, b})
	ctx := context.Background()

	if e.Head() != a {
		t.Fatalf("head = %v, want A", e.Head())
	}
	if err := e.Process(ctx, a, false); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if e.Head() != b {
		t.Fatalf("head = %v, want B after requeue", e.Head())
	}
	if err := e.Process(ctx, b, true); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if e.Head() != a {
		t.Fatalf("head = %v, want requeued A", e.Head())
	}
}

func TestHeadOnEmptyQueueIsNil(t *testing.T) {
	e := New(&fakeRecorder{}, &fakeFetcher{}, nil)
	if e.Head() != nil {
		t.Fatalf("head = %v, want nil", e.Head())
	}
}
