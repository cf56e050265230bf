package resilience

// Bulkhead limits concurrent requests. Acquire never blocks.
type Bulkhead struct {
	sem chan struct{}
}

// NewBulkhead creates a bulkhead admitting at most maxInFlight requests.
// maxInFlight <= 0 yields a bulkhead with a single slot.
func NewBulkhead(maxInFlight int) *Bulkhead {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	return &Bulkhead{sem: make(chan struct{}, maxInFlight)}
}

// Acquire takes a slot, returning ErrBulkheadFull when none is free.
func (b *Bulkhead) Acquire() error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
		return ErrBulkheadFull
	}
}

// Release returns a slot taken by Acquire.
func (b *Bulkhead) Release() {
	select {
	case <-b.sem:
	default:
	}
}
