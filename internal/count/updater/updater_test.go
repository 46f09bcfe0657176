package updater

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingPersister struct {
	mu       sync.Mutex
	calls    []float64
	failNext bool
	delay    time.Duration
	active   int
	maxAct   int
}

func (p *recordingPersister) PersistQuantity(ctx context.Context, countID, itemID string, quantity float64) error {
	p.mu.Lock()
	p.active++
	if p.active > p.maxAct {
		p.maxAct = p.active
	}
	fail := p.failNext
	p.failNext = false
	delay := p.delay
	p.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	p.mu.Lock()
	p.active--
	if !fail {
		p.calls = append(p.calls, quantity)
	}
	p.mu.Unlock()

	if fail {
		return errors.New("persistence unavailable")
	}
	return nil
}

func (p *recordingPersister) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func (p *recordingPersister) lastCall() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[len(p.calls)-1]
}

func TestSubmit_DebounceCoalescing(t *testing.T) {
	p := &recordingPersister{}
	s := NewService("count-1", p, 30*time.Millisecond, nil)
	defer s.Close()

	s.Submit("item-1", "1")
	s.Submit("item-1", "12")
	s.Submit("item-1", "7")

	time.Sleep(100 * time.Millisecond)

	if got := p.callCount(); got != 1 {
		t.Fatalf("expected exactly 1 persisted write, got %d", got)
	}
	if got := p.lastCall(); got != 7 {
		t.Fatalf("expected final value 7, got %v", got)
	}

	state := s.State("item-1")
	if state.HasUnsavedChanges || state.HasError || state.IsSaving {
		t.Fatalf("expected clean state after save, got %+v", state)
	}
	if state.DisplayValue != "7" {
		t.Fatalf("expected display value 7, got %q", state.DisplayValue)
	}
}

func TestSubmit_AtMostOneInFlightWrite(t *testing.T) {
	p := &recordingPersister{delay: 50 * time.Millisecond}
	s := NewService("count-1", p, 10*time.Millisecond, nil)
	defer s.Close()

	s.Submit("item-1", "5")
	// Let the first write start, then submit a newer value whose
	// debounce fires while the first write is still in flight.
	time.Sleep(25 * time.Millisecond)
	s.Submit("item-1", "9")

	time.Sleep(250 * time.Millisecond)

	if got := p.callCount(); got != 2 {
		t.Fatalf("expected 2 sequential writes, got %d", got)
	}
	if got := p.lastCall(); got != 9 {
		t.Fatalf("expected final persisted value 9, got %v", got)
	}

	p.mu.Lock()
	maxActive := p.maxAct
	p.mu.Unlock()
	if maxActive > 1 {
		t.Fatalf("expected at most one in-flight write per item, saw %d concurrent", maxActive)
	}
}

func TestSubmit_IndependentItemsRunInParallel(t *testing.T) {
	p := &recordingPersister{delay: 40 * time.Millisecond}
	s := NewService("count-1", p, 10*time.Millisecond, nil)
	defer s.Close()

	s.Submit("item-1", "1")
	s.Submit("item-2", "2")
	s.Submit("item-3", "3")

	time.Sleep(150 * time.Millisecond)

	if got := p.callCount(); got != 3 {
		t.Fatalf("expected 3 writes, got %d", got)
	}
}

func TestSubmit_InvalidInputNeverPersisted(t *testing.T) {
	p := &recordingPersister{}
	s := NewService("count-1", p, 10*time.Millisecond, nil)
	defer s.Close()

	s.Submit("item-1", "abc")
	s.Submit("item-2", "-4")

	time.Sleep(60 * time.Millisecond)

	if got := p.callCount(); got != 0 {
		t.Fatalf("expected no persisted writes for invalid input, got %d", got)
	}

	for _, id := range []string{"item-1", "item-2"} {
		state := s.State(id)
		if !state.HasError {
			t.Fatalf("expected HasError for %s, got %+v", id, state)
		}
	}
	if got := s.State("item-2").DisplayValue; got != "-4" {
		t.Fatalf("expected raw input kept visible, got %q", got)
	}
}

func TestSubmit_FailureKeepsLocalValueWithoutRetry(t *testing.T) {
	p := &recordingPersister{failNext: true}
	s := NewService("count-1", p, 10*time.Millisecond, nil)
	defer s.Close()

	s.Submit("item-1", "15")
	time.Sleep(80 * time.Millisecond)

	state := s.State("item-1")
	if !state.HasError {
		t.Fatalf("expected HasError after failed persist, got %+v", state)
	}
	if !state.HasUnsavedChanges {
		t.Fatalf("expected unsaved changes preserved, got %+v", state)
	}
	if state.DisplayValue != "15" {
		t.Fatalf("expected operator input kept visible, got %q", state.DisplayValue)
	}
	if got := p.callCount(); got != 0 {
		t.Fatalf("expected no successful writes and no auto-retry, got %d", got)
	}

	// A manual re-submit recovers.
	s.Submit("item-1", "15")
	time.Sleep(60 * time.Millisecond)

	state = s.State("item-1")
	if state.HasError || state.HasUnsavedChanges {
		t.Fatalf("expected clean state after manual retry, got %+v", state)
	}
	if got := p.callCount(); got != 1 {
		t.Fatalf("expected 1 successful write after retry, got %d", got)
	}
}

func TestClose_CancelsPendingTimers(t *testing.T) {
	p := &recordingPersister{}
	s := NewService("count-1", p, 50*time.Millisecond, nil)

	s.Submit("item-1", "5")
	s.Close()

	time.Sleep(120 * time.Millisecond)

	if got := p.callCount(); got != 0 {
		t.Fatalf("expected pending debounce cancelled on close, got %d writes", got)
	}
}
