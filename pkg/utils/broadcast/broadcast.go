package broadcast

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/lapboard/log"
)

const defaultSendTimeout = 50 * time.Millisecond

// Server fans out every message read from its source to all subscribers.
// Slow subscribers miss messages instead of blocking the others.
type Server[T any] interface {
	Subscribe() <-chan T
	CancelSubscription(<-chan T)
	Close()
}

type server[T any] struct {
	name           string
	source         <-chan T
	listeners      []chan T
	addListener    chan chan T
	removeListener chan (<-chan T)
	ctx            context.Context
	cancel         context.CancelFunc
	sendTimeout    time.Duration
	numRcv         atomic.Int64
	numSnd         atomic.Int64
	numSkip        atomic.Int64
	numListeners   atomic.Int64
	l              *log.Logger
}

type Option[T any] func(*server[T])

func WithSendTimeout[T any](d time.Duration) Option[T] {
	return func(b *server[T]) {
		b.sendTimeout = d
	}
}

func WithLogger[T any](l *log.Logger) Option[T] {
	return func(b *server[T]) {
		b.l = l
	}
}

func NewServer[T any](name string, source <-chan T, opts ...Option[T]) Server[T] {
	ctx, cancel := context.WithCancel(context.Background())
	b := &server[T]{
		name:           name,
		source:         source,
		addListener:    make(chan chan T),
		removeListener: make(chan (<-chan T)),
		ctx:            ctx,
		cancel:         cancel,
		sendTimeout:    defaultSendTimeout,
		l:              log.Default().Named("broadcast"),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.setupMetrics()
	go b.serve()
	return b
}

// Subscribe returns a channel receiving all messages from now on.
// The channel is closed when the server is closed.
func (b *server[T]) Subscribe() <-chan T {
	ch := make(chan T)
	select {
	case b.addListener <- ch:
	case <-b.ctx.Done():
		close(ch)
	}
	return ch
}

func (b *server[T]) CancelSubscription(ch <-chan T) {
	select {
	case b.removeListener <- ch:
	case <-b.ctx.Done():
	}
}

func (b *server[T]) Close() {
	b.l.Debug("closing broadcast server",
		log.String("name", b.name),
		log.Int("rcv", int(b.numRcv.Load())),
		log.Int("snd", int(b.numSnd.Load())),
		log.Int("skip", int(b.numSkip.Load())))
	b.cancel()
}

func (b *server[T]) setupMetrics() {
	meter := otel.GetMeterProvider().Meter(fmt.Sprintf("lapboard.broadcast.%s", b.name))
	for _, d := range []struct {
		name  string
		desc  string
		value *atomic.Int64
	}{
		{"lapboard.broadcast.rcv", "Number of received messages", &b.numRcv},
		{"lapboard.broadcast.snd", "Number of sent messages", &b.numSnd},
		{"lapboard.broadcast.skip", "Number of skipped messages", &b.numSkip},
		{"lapboard.broadcast.listener", "Number of listeners", &b.numListeners},
	} {
		value := d.value
		if _, err := meter.Int64ObservableGauge(
			d.name,
			metric.WithDescription(d.desc),
			metric.WithUnit("{count}"),
			metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
				o.Observe(value.Load(),
					metric.WithAttributes(attribute.String("name", b.name)))
				return nil
			})); err != nil {
			b.l.Error("failed to register metric",
				log.String("metric", d.name), log.ErrorField(err))
		}
	}
}

func (b *server[T]) serve() {
	defer func() {
		for _, listener := range b.listeners {
			close(listener)
		}
		b.listeners = nil
	}()
	for {
		select {
		case <-b.ctx.Done():
			return
		case ch := <-b.addListener:
			b.listeners = append(b.listeners, ch)
			b.numListeners.Store(int64(len(b.listeners)))
		case ch := <-b.removeListener:
			for i, listener := range b.listeners {
				if listener == ch {
					b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
					close(listener)
					break
				}
			}
			b.numListeners.Store(int64(len(b.listeners)))
		case msg, ok := <-b.source:
			if !ok {
				b.l.Debug("source closed", log.String("name", b.name))
				return
			}
			b.numRcv.Add(1)
			b.dispatch(msg)
		}
	}
}

func (b *server[T]) dispatch(msg T) {
	for _, listener := range b.listeners {
		timer := time.NewTimer(b.sendTimeout)
		select {
		case listener <- msg:
			b.numSnd.Add(1)
		case <-timer.C:
			b.numSkip.Add(1)
		case <-b.ctx.Done():
			timer.Stop()
			return
		}
		timer.Stop()
	}
}
