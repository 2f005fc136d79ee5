package docstore

import (
	"context"
	"time"
)

// LatencyObserver receives the duration of each store call.
type LatencyObserver interface {
	ObserveStoreLatency(operation string, seconds float64)
}

// Observed wraps a Store and reports per-operation latency.
type Observed struct {
	next     Store
	observer LatencyObserver
}

var (
	_ Store        = (*Observed)(nil)
	_ KeyedCreator = (*Observed)(nil)
)

// NewObserved returns next unchanged when observer is nil.
func NewObserved(next Store, observer LatencyObserver) Store {
	if observer == nil {
		return next
	}
	return &Observed{next: next, observer: observer}
}

func (o *Observed) Get(ctx context.Context, collection, id string) (*Document, error) {
	defer o.observe("get", time.Now())
	return o.next.Get(ctx, collection, id)
}

func (o *Observed) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	defer o.observe("query", time.Now())
	return o.next.Query(ctx, collection, filters...)
}

func (o *Observed) List(ctx context.Context, collection string) ([]Document, error) {
	defer o.observe("list", time.Now())
	return o.next.List(ctx, collection)
}

func (o *Observed) Create(ctx context.Context, collection string, fields map[string]any) (*Document, error) {
	defer o.observe("create", time.Now())
	return o.next.Create(ctx, collection, fields)
}

func (o *Observed) CreateWithID(ctx context.Context, collection, id string, fields map[string]any) (*Document, error) {
	defer o.observe("create", time.Now())
	return CreateKeyed(ctx, o.next, collection, id, fields)
}

func (o *Observed) observe(op string, start time.Time) {
	o.observer.ObserveStoreLatency(op, time.Since(start).Seconds())
}
