package queue

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func newTestQueue(t *testing.T) (*Queue, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queues.db")
	db, err := OpenDB(path)
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	q, err := db.New("writes")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return q, path
}

func TestDrainPreservesFIFO(t *testing.T) {
	q, _ := newTestQueue(t)

	for i := 0; i < 5; i++ {
		if err := q.Enqueue([]byte(fmt.Sprintf("item-%d", i))); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	var got []string
	n, err := q.Drain(func(it Item) error {
		got = append(got, string(it.Payload))
		return nil
	})
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if n != 5 {
		t.Errorf("expected 5 delivered, got %d", n)
	}
	for i, s := range got {
		if want := fmt.Sprintf("item-%d", i); s != want {
			t.Errorf("position %d: got %q, want %q", i, s, want)
		}
	}
}

func TestDrainTwiceDeliversOnce(t *testing.T) {
	q, _ := newTestQueue(t)
	q.Enqueue([]byte("only"))

	calls := 0
	sink := func(Item) error { calls++; return nil }

	if _, err := q.Drain(sink); err != nil {
		t.Fatalf("first Drain failed: %v", err)
	}
	if _, err := q.Drain(sink); err != nil {
		t.Fatalf("second Drain failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected sink called once, got %d", calls)
	}
}

func TestSinkFailureKeepsItems(t *testing.T) {
	q, _ := newTestQueue(t)
	q.Enqueue([]byte("a"))
	q.Enqueue([]byte("b"))

	boom := errors.New("sink unavailable")
	_, err := q.Drain(func(Item) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected sink error, got %v", err)
	}

	n, err := q.Len()
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected both items retained after failed drain, got %d", n)
	}
}

func TestItemsSurviveReopen(t *testing.T) {
	q, path := newTestQueue(t)
	q.Enqueue([]byte("durable"))

	db2, err := OpenDB(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db2.Close()
	q2, err := db2.New("writes")
	if err != nil {
		t.Fatalf("reattach failed: %v", err)
	}

	n, err := q2.Len()
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 item after reopen, got %d", n)
	}
}
