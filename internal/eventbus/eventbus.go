// Package eventbus decouples the runtime from its observers. The engine
// and registry publish typed events; subscribers attach handlers per
// event type. With no bus installed, publishing is a no-op, so
// instrumentation is strictly opt-in.
package eventbus

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
)

// Handler processes events of type T. Handlers run synchronously on the
// publishing goroutine and must not block.
type Handler[T any] func(context.Context, T)

type subscription struct {
	eventType reflect.Type
	deliver   func(context.Context, any)
}

// Bus is an in-process dispatcher keyed by the event's dynamic type.
type Bus struct {
	mu   sync.RWMutex
	subs map[reflect.Type][]*subscription
}

func New() *Bus {
	return &Bus{subs: make(map[reflect.Type][]*subscription)}
}

func (b *Bus) attach(sub *subscription) (detach func()) {
	b.mu.Lock()
	b.subs[sub.eventType] = append(b.subs[sub.eventType], sub)
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		kept := b.subs[sub.eventType][:0]
		for _, s := range b.subs[sub.eventType] {
			if s != sub {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(b.subs, sub.eventType)
		} else {
			b.subs[sub.eventType] = kept
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, e any) {
	t := reflect.TypeOf(e)
	b.mu.RLock()
	subs := append([]*subscription(nil), b.subs[t]...)
	b.mu.RUnlock()
	for _, s := range subs {
		s.deliver(ctx, e)
	}
}

var global atomic.Pointer[Bus]

// Use installs b as the process-wide bus. Passing nil disables event
// publishing entirely.
func Use(b *Bus) { global.Store(b) }

// Subscribe registers h with the process-wide bus for events of type T.
// The returned function detaches the handler.
func Subscribe[T any](h Handler[T]) (unsubscribe func()) {
	b := global.Load()
	if b == nil {
		return func() {}
	}
	sub := &subscription{
		eventType: reflect.TypeOf((*T)(nil)).Elem(),
		deliver:   func(ctx context.Context, v any) { h(ctx, v.(T)) },
	}
	return b.attach(sub)
}

// Publish sends e to every handler subscribed to its type.
func Publish[T any](ctx context.Context, e T) {
	if b := global.Load(); b != nil {
		b.dispatch(ctx, e)
	}
}
