// Package search runs catalog queries so that only the newest one is shown.
//
// Inputs are debounced, each dispatched query carries a sequence number, the
// previous in-flight request is canceled, and a response whose sequence is no
// longer the latest is dropped.
package search

import (
	"context"
	"sync"
	"time"

	"decorbook/internal/metrics"
	"decorbook/internal/models"
)

// Func performs one catalog query.
type Func func(ctx context.Context, f models.ServiceFilter) (*models.ServicePage, error)

// Result is delivered for the latest query only.
type Result struct {
	Seq    uint64
	Filter models.ServiceFilter
	Page   *models.ServicePage
	Err    error
}

type Coordinator struct {
	parent   context.Context
	search   Func
	debounce time.Duration
	deliver  func(Result)

	mu     sync.Mutex
	seq    uint64
	timer  *time.Timer
	cancel context.CancelFunc

	// deliverMu spans the latest check and deliver so an older result can
	// never be shown after a newer one.
	deliverMu sync.Mutex
}

func NewCoordinator(parent context.Context, search Func, debounce time.Duration, deliver func(Result)) *Coordinator {
	return &Coordinator{parent: parent, search: search, debounce: debounce, deliver: deliver}
}

// Submit schedules f after the debounce window and returns its sequence.
// A later Submit within the window replaces it.
func (c *Coordinator) Submit(f models.ServiceFilter) uint64 {
	return c.schedule(f, c.debounce)
}

// SubmitNow dispatches f without waiting, e.g. for page buttons.
func (c *Coordinator) SubmitNow(f models.ServiceFilter) uint64 {
	return c.schedule(f, 0)
}

func (c *Coordinator) schedule(f models.ServiceFilter, wait time.Duration) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	seq := c.seq
	if c.timer != nil {
		c.timer.Stop()
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if wait <= 0 {
		go c.dispatch(seq, f)
		return seq
	}
	c.timer = time.AfterFunc(wait, func() { c.dispatch(seq, f) })
	return seq
}

func (c *Coordinator) dispatch(seq uint64, f models.ServiceFilter) {
	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(c.parent)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	page, err := c.search(ctx, f)

	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	if seq != c.Latest() {
		metrics.IncStaleSearch()
		return
	}
	c.deliver(Result{Seq: seq, Filter: f, Page: page, Err: err})
}

// Latest is the sequence of the newest submitted query.
func (c *Coordinator) Latest() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Stop cancels pending and in-flight work. Nothing is delivered afterwards.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	if c.timer != nil {
		c.timer.Stop()
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Registry keeps one coordinator per chat.
type Registry struct {
	parent   context.Context
	search   Func
	debounce time.Duration
	chats    sync.Map // int64 -> *Coordinator
}

func NewRegistry(parent context.Context, search Func, debounce time.Duration) *Registry {
	return &Registry{parent: parent, search: search, debounce: debounce}
}

// For returns the chat's coordinator, creating it with deliver on first use.
func (r *Registry) For(chatID int64, deliver func(Result)) *Coordinator {
	if c, ok := r.chats.Load(chatID); ok {
		return c.(*Coordinator)
	}
	c, _ := r.chats.LoadOrStore(chatID, NewCoordinator(r.parent, r.search, r.debounce, deliver))
	return c.(*Coordinator)
}

// Forget stops and drops the chat's coordinator.
func (r *Registry) Forget(chatID int64) {
	if c, ok := r.chats.LoadAndDelete(chatID); ok {
		c.(*Coordinator).Stop()
	}
}
