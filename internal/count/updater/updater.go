// Package updater coalesces rapid per-item quantity edits into a
// minimal sequence of persisted writes, giving the operator immediate
// feedback without saturating the backing store.
package updater

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/fekuna/omnipos-count-service/pkg/logger"
	"go.uber.org/zap"
)

// DefaultDebounce is the window within which repeated submissions for
// the same item collapse into one write.
const DefaultDebounce = 500 * time.Millisecond

// Persister is the write contract the service flushes through.
// Satisfied by the count usecase.
type Persister interface {
	PersistQuantity(ctx context.Context, countID, itemID string, quantity float64) error
}

// PersisterFunc adapts a function to the Persister interface.
type PersisterFunc func(ctx context.Context, countID, itemID string, quantity float64) error

func (f PersisterFunc) PersistQuantity(ctx context.Context, countID, itemID string, quantity float64) error {
	return f(ctx, countID, itemID, quantity)
}

// ItemState is the per-item view the UI binds to.
type ItemState struct {
	DisplayValue      string `json:"display_value"`
	IsSaving          bool   `json:"is_saving"`
	HasError          bool   `json:"has_error"`
	HasUnsavedChanges bool   `json:"has_unsaved_changes"`
}

type entry struct {
	state    ItemState
	value    float64
	timer    *time.Timer
	inFlight bool
	pending  *float64
}

// Service serializes edits per count item: one debounce timer and at
// most one in-flight write per item id. Different items proceed fully
// in parallel.
type Service struct {
	countID   string
	persister Persister
	debounce  time.Duration
	logger    logger.ZapLogger

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
	wg      sync.WaitGroup
}

func NewService(countID string, persister Persister, debounce time.Duration, log logger.ZapLogger) *Service {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Service{
		countID:   countID,
		persister: persister,
		debounce:  debounce,
		logger:    log,
		entries:   make(map[string]*entry),
	}
}

// Submit records a raw quantity edit for an item. Invalid input
// (non-numeric or negative) flags the item immediately and is never
// sent to persistence. Valid input restarts the item's debounce window.
func (s *Service) Submit(itemID, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	e, ok := s.entries[itemID]
	if !ok {
		e = &entry{}
		s.entries[itemID] = e
	}

	e.state.DisplayValue = raw

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		e.state.HasError = true
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
		return
	}

	e.value = value
	e.state.HasError = false
	e.state.HasUnsavedChanges = true

	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(s.debounce, func() {
		s.flush(itemID)
	})
}

// State returns the current per-item state record.
func (s *Service) State(itemID string) ItemState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[itemID]; ok {
		return e.state
	}
	return ItemState{}
}

// Close cancels pending debounce timers. In-flight writes are allowed
// to finish to avoid partial writes; Close blocks until they have.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	for _, e := range s.entries {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// flush fires when an item's debounce window closes. If a write is
// already in flight the latest value is parked and written immediately
// after the in-flight call resolves, so two writes never race for one
// item.
func (s *Service) flush(itemID string) {
	s.mu.Lock()
	e, ok := s.entries[itemID]
	if !ok || s.closed {
		s.mu.Unlock()
		return
	}
	e.timer = nil

	if e.inFlight {
		v := e.value
		e.pending = &v
		s.mu.Unlock()
		return
	}

	e.inFlight = true
	e.state.IsSaving = true
	value := e.value
	s.mu.Unlock()

	s.wg.Add(1)
	go s.persist(itemID, value)
}

func (s *Service) persist(itemID string, value float64) {
	defer s.wg.Done()

	err := s.persister.PersistQuantity(context.Background(), s.countID, itemID, value)

	s.mu.Lock()
	e := s.entries[itemID]
	if e == nil {
		s.mu.Unlock()
		return
	}

	if err != nil {
		// Keep the operator's input visible; retry is a manual
		// re-submit.
		e.inFlight = false
		e.pending = nil
		e.state.IsSaving = false
		e.state.HasError = true
		s.mu.Unlock()

		if s.logger != nil {
			s.logger.Error("failed to persist count item quantity",
				zap.String("count_id", s.countID),
				zap.String("item_id", itemID),
				zap.Error(err),
			)
		}
		return
	}

	if e.pending != nil {
		// A newer value arrived while writing; flush it right away.
		next := *e.pending
		e.pending = nil
		s.mu.Unlock()

		s.wg.Add(1)
		go s.persist(itemID, next)
		return
	}

	e.inFlight = false
	e.state.IsSaving = false
	e.state.HasError = false
	// Only clear the dirty flag if the saved value is still current.
	if e.value == value {
		e.state.HasUnsavedChanges = false
	}
	s.mu.Unlock()
}
