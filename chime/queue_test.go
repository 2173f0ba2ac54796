package chime

import (
	"testing"
	"time"
)

func Test_Queue_FIFO(t *testing.T) {
	t1 := time.Unix(100000, 0)
	t2 := time.Unix(101000, 0)
	t3 := time.Unix(102000, 0)

	q := newTimeQueue(Times(t1, t2))
	q.push(t3)

	for i, want := range []time.Time{t1, t2, t3} {
		got, ok := q.pop()
		if !ok {
			t.Fatalf("pop %d failed", i)
		}
		if !got.Equal(want) {
			t.Fatalf("wrong pop %d: expected='%s', actual='%s'", i, want, got)
		}
	}
	if _, ok := q.pop(); ok {
		t.Fatal("pop on empty queue succeeded")
	}
}

func Test_Queue_PushRelative(t *testing.T) {
	t1 := time.Unix(100000, 0)

	q := newTimeQueue(Times(t1))
	q.pop()

	// anchors on the last element to enter the queue, even once popped
	if !q.pushRelative(func(last time.Time) time.Time { return last.Add(time.Minute) }) {
		t.Fatal("relative push rejected")
	}
	got, ok := q.pop()
	if !ok || !got.Equal(t1.Add(time.Minute)) {
		t.Fatalf("wrong relative element: expected='%s', actual='%s'", t1.Add(time.Minute), got)
	}

	// chained relative pushes anchor on each other
	q.pushRelative(func(last time.Time) time.Time { return last.Add(time.Minute) })
	got, _ = q.pop()
	if !got.Equal(t1.Add(2 * time.Minute)) {
		t.Fatalf("wrong chained element: expected='%s', actual='%s'", t1.Add(2*time.Minute), got)
	}
}

func Test_Queue_PushRelative_Empty(t *testing.T) {
	q := newTimeQueue(nil)
	if q.pushRelative(func(last time.Time) time.Time { return last }) {
		t.Fatal("relative push on empty history succeeded")
	}
}
