package search

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"decorbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu      sync.Mutex
	results []Result
	got     chan struct{}
}

func newCollector() *collector {
	return &collector{got: make(chan struct{}, 16)}
}

func (c *collector) deliver(r Result) {
	c.mu.Lock()
	c.results = append(c.results, r)
	c.mu.Unlock()
	c.got <- struct{}{}
}

func (c *collector) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.got:
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
	}
}

func (c *collector) snapshot() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Result(nil), c.results...)
}

func TestCoordinator_DebounceCollapsesInput(t *testing.T) {
	var calls atomic.Int32
	var lastQuery atomic.Value
	fn := func(_ context.Context, f models.ServiceFilter) (*models.ServicePage, error) {
		calls.Add(1)
		lastQuery.Store(f.Search)
		return &models.ServicePage{Total: 1}, nil
	}

	col := newCollector()
	c := NewCoordinator(context.Background(), fn, 30*time.Millisecond, col.deliver)

	c.Submit(models.ServiceFilter{Search: "b"})
	c.Submit(models.ServiceFilter{Search: "bi"})
	seq := c.Submit(models.ServiceFilter{Search: "birthday"})

	col.wait(t)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "birthday", lastQuery.Load())

	res := col.snapshot()
	require.Len(t, res, 1)
	assert.Equal(t, seq, res[0].Seq)
	assert.Equal(t, "birthday", res[0].Filter.Search)
}

func TestCoordinator_StaleResponseDropped(t *testing.T) {
	release := make(chan struct{})
	slowCtx := make(chan context.Context, 1)

	fn := func(ctx context.Context, f models.ServiceFilter) (*models.ServicePage, error) {
		if f.Search == "slow" {
			slowCtx <- ctx
			<-release // the server answers late no matter what
			return &models.ServicePage{Total: 99}, nil
		}
		return &models.ServicePage{Total: 1}, nil
	}

	col := newCollector()
	c := NewCoordinator(context.Background(), fn, 0, col.deliver)

	c.SubmitNow(models.ServiceFilter{Search: "slow"})
	ctx := <-slowCtx

	fast := c.SubmitNow(models.ServiceFilter{Search: "fast"})
	col.wait(t)

	assert.ErrorIs(t, ctx.Err(), context.Canceled, "older request is canceled")
	close(release)
	time.Sleep(20 * time.Millisecond)

	res := col.snapshot()
	require.Len(t, res, 1)
	assert.Equal(t, fast, res[0].Seq)
	assert.Equal(t, 1, res[0].Page.Total)
	assert.Equal(t, fast, c.Latest())
}

func TestCoordinator_NewerResultShownLast(t *testing.T) {
	fn := func(_ context.Context, f models.ServiceFilter) (*models.ServicePage, error) {
		return &models.ServicePage{Page: f.Page}, nil
	}

	var (
		mu       sync.Mutex
		shown    []int
		inflight atomic.Int32
		overlap  atomic.Bool
	)
	done := make(chan struct{}, 2)
	var c *Coordinator
	deliver := func(r Result) {
		if inflight.Add(1) > 1 {
			overlap.Store(true)
		}
		defer inflight.Add(-1)
		if r.Page.Page == 1 {
			// page button pressed while the first page is still being sent
			c.SubmitNow(models.ServiceFilter{Page: 2})
			time.Sleep(30 * time.Millisecond)
		}
		mu.Lock()
		shown = append(shown, r.Page.Page)
		mu.Unlock()
		done <- struct{}{}
	}
	c = NewCoordinator(context.Background(), fn, 0, deliver)

	c.SubmitNow(models.ServiceFilter{Page: 1})
	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("no result delivered")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2}, shown)
	assert.False(t, overlap.Load(), "deliveries must not run concurrently")
}

func TestCoordinator_StopDropsPending(t *testing.T) {
	var calls atomic.Int32
	fn := func(context.Context, models.ServiceFilter) (*models.ServicePage, error) {
		calls.Add(1)
		return &models.ServicePage{}, nil
	}
	col := newCollector()
	c := NewCoordinator(context.Background(), fn, 20*time.Millisecond, col.deliver)

	c.Submit(models.ServiceFilter{Search: "x"})
	c.Stop()
	time.Sleep(50 * time.Millisecond)

	assert.Zero(t, calls.Load())
	assert.Empty(t, col.snapshot())
}

func TestRegistry_OnePerChat(t *testing.T) {
	fn := func(context.Context, models.ServiceFilter) (*models.ServicePage, error) { return nil, nil }
	r := NewRegistry(context.Background(), fn, time.Millisecond)

	a := r.For(1, func(Result) {})
	b := r.For(1, func(Result) {})
	other := r.For(2, func(Result) {})
	assert.Same(t, a, b)
	assert.NotSame(t, a, other)

	r.Forget(1)
	assert.NotSame(t, a, r.For(1, func(Result) {}))
}
