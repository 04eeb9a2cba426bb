package outbox

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	domoutbox "github.com/Zhima-Mochi/minishop-orders/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-orders/internal/observability"
	"github.com/Zhima-Mochi/minishop-orders/internal/observability/logctx"
)

const (
	componentOutbox    = "outbox"
	defaultQueueSize   = 1024
	defaultConcurrency = 8
	handlerTimeout     = 30 * time.Second
)

// Middleware decorates every handler at dispatch time.
type Middleware func(domoutbox.Handler) domoutbox.Handler

// Bus is an in-memory, non-durable event bus. Events are queued and fanned
// out to subscribers by a single dispatch goroutine with bounded handler
// concurrency.
type Bus struct {
	mu          sync.RWMutex
	subs        map[string][]domoutbox.Handler
	all         []domoutbox.Handler
	middleware  []Middleware
	queue       chan envelope
	qmu         sync.RWMutex // guards closed and the queue close
	closed      bool
	startOnce   sync.Once
	stopOnce    sync.Once
	done        chan struct{}
	concurrency int
	log         observability.Logger
}

// envelope keeps the publisher's span so handlers continue the same trace.
type envelope struct {
	event  domoutbox.Event
	parent trace.SpanContext
}

type Option func(*Bus)

func WithQueueSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queue = make(chan envelope, n)
		}
	}
}

func WithConcurrency(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

func NewBus(logger observability.Logger, opts ...Option) *Bus {
	if logger == nil {
		logger = observability.NopLogger()
	}
	b := &Bus{
		subs:        make(map[string][]domoutbox.Handler),
		queue:       make(chan envelope, defaultQueueSize),
		done:        make(chan struct{}),
		concurrency: defaultConcurrency,
		log:         logger.With(observability.F("component", componentOutbox)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Use appends dispatch middleware. Register before Start.
func (b *Bus) Use(mw ...Middleware) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.middleware = append(b.middleware, mw...)
}

func (b *Bus) Subscribe(eventName string, h domoutbox.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

func (b *Bus) SubscribeAll(h domoutbox.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		go b.dispatchLoop(context.WithoutCancel(ctx))
		logctx.FromOr(ctx, b.log).Info("event_bus_started")
	})
}

// Stop closes the queue and waits until already queued events are handled
// or ctx expires.
func (b *Bus) Stop(ctx context.Context) {
	b.stopOnce.Do(func() {
		b.qmu.Lock()
		b.closed = true
		close(b.queue)
		b.qmu.Unlock()

		logger := logctx.FromOr(ctx, b.log)
		select {
		case <-b.done:
			logger.Info("event_bus_stopped")
		case <-ctx.Done():
			logger.Warn("event_bus_stop_timeout", observability.Err(ctx.Err()))
		}
	})
}

func (b *Bus) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	b.qmu.RLock()
	defer b.qmu.RUnlock()
	if b.closed {
		return errBusStopped
	}

	env := envelope{event: e, parent: trace.SpanContextFromContext(ctx)}
	logger := logctx.FromOr(ctx, b.log).With(observability.F("event", e.EventName()))
	select {
	case b.queue <- env:
		logger.Debug("event_enqueued")
		return nil
	case <-ctx.Done():
		logger.Warn("event_enqueue_aborted", observability.Err(ctx.Err()))
		return ctx.Err()
	}
}

type busError string

func (e busError) Error() string { return string(e) }

const errBusStopped = busError("outbox: bus stopped")

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for env := range b.queue {
		b.fanout(ctx, env)
	}
}

func (b *Bus) handlers(name string) []domoutbox.Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	hs := make([]domoutbox.Handler, 0, len(b.subs[name])+len(b.all))
	hs = append(hs, b.subs[name]...)
	hs = append(hs, b.all...)
	for i, h := range hs {
		for j := len(b.middleware) - 1; j >= 0; j-- {
			h = b.middleware[j](h)
		}
		hs[i] = h
	}
	return hs
}

func (b *Bus) fanout(ctx context.Context, env envelope) {
	e := env.event
	name := e.EventName()
	handlers := b.handlers(name)

	if len(handlers) == 0 {
		b.log.Debug("event_dropped_no_subscriber", observability.F("event", name))
		return
	}

	if env.parent.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, env.parent)
	}
	ctx = logctx.With(ctx, b.log.With(observability.F("event", name)))

	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		h := h
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("event_handler_panic",
						observability.F("event", name),
						observability.F("panic", r),
						observability.F("stack", string(debug.Stack())),
					)
				}
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
			defer cancel()
			if err := h(hctx, e); err != nil {
				logctx.FromOr(hctx, b.log).Warn("event_handler_error",
					observability.F("event", name),
					observability.Err(err),
				)
			}
		}()
	}

	wg.Wait()

	b.log.Debug("event_fanned_out",
		observability.F("event", name),
		observability.F("handlers", len(handlers)),
	)
}
