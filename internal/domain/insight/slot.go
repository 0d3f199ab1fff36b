package insight

import (
	"context"
	"sync"
)

// Status is the state of a Slot for a given product.
type Status string

const (
	// StatusNone means the slot is not showing the product.
	StatusNone Status = "none"
	// StatusPending means a fetch for the product is in flight.
	StatusPending Status = "pending"
	// StatusReady means the text for the product is available.
	StatusReady Status = "ready"
)

// Fetch produces the text for the product being loaded.
type Fetch func(ctx context.Context) string

// Slot holds the insight for the product a visitor is looking at. Results
// that complete after the slot moved to another product are dropped.
type Slot struct {
	mu        sync.Mutex
	productID string
	text      string
	status    Status
	seq       uint64
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Load switches the slot to productID and runs fetch in the background.
// Any previous fetch is cancelled and its result discarded. The fetch
// context outlives ctx's cancellation but keeps its values.
func (s *Slot) Load(ctx context.Context, productID string, fetch Fetch) {
	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	seq := s.seq
	s.productID = productID
	s.text = ""
	s.status = StatusPending
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		text := fetch(fetchCtx)
		s.settle(seq, text)
	}()
}

func (s *Slot) settle(seq uint64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return
	}
	s.text = text
	s.status = StatusReady
	s.cancel = nil
}

// Get returns the text for productID if the slot currently shows it.
func (s *Slot) Get(productID string) (string, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == "" || s.productID != productID {
		return "", StatusNone
	}
	return s.text, s.status
}

// Current returns the product the slot is showing, if any.
func (s *Slot) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.productID, s.status != "" && s.status != StatusNone
}

// Reset hides the slot and drops any in-flight result.
func (s *Slot) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
	s.productID = ""
	s.text = ""
	s.status = StatusNone
}

// Close resets the slot and waits for background fetches to return.
func (s *Slot) Close() {
	s.Reset()
	s.wg.Wait()
}
