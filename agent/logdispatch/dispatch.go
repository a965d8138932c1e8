package logdispatch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	contractx "github.com/yugent/yugent/agent/contract"
)

// Mode selects whether log layers run on or off the cycle's critical path.
type Mode string

const (
	ModeSync  Mode = "sync"
	ModeAsync Mode = "async"
)

const defaultTimeout = 10 * time.Second

type target struct {
	id       string
	impl     contractx.LogLayer
	blocking bool
}

// Dispatcher fans pipeline events out to log layers. Each layer's failure is
// isolated: it is recorded through zerolog diagnostics and swallowed, never
// surfaced to the cycle. Ordering between layers is not guaranteed.
type Dispatcher struct {
	targets []target
	mode    Mode
	timeout time.Duration

	wg  sync.WaitGroup
	log zerolog.Logger
}

func New(layers []contractx.Layer, mode Mode, timeout time.Duration) *Dispatcher {
	if mode != ModeSync {
		mode = ModeAsync
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	targets := make([]target, 0, len(layers))
	for _, layer := range layers {
		if layer.Kind != contractx.KindLog || layer.LogImpl == nil {
			continue
		}
		targets = append(targets, target{
			id:       layer.ID,
			impl:     layer.LogImpl,
			blocking: layer.Blocking,
		})
	}

	return &Dispatcher{
		targets: targets,
		mode:    mode,
		timeout: timeout,
		log:     log.With().Str("component", "logdispatch").Logger(),
	}
}

func (d *Dispatcher) Len() int {
	return len(d.targets)
}

// Dispatch delivers every event to every log layer. In async mode delivery is
// detached from the caller's context so a finished cycle cannot cancel it;
// layers marked blocking are awaited regardless of mode.
func (d *Dispatcher) Dispatch(ctx context.Context, events ...contractx.Event) {
	for _, event := range events {
		for _, tgt := range d.targets {
			if d.mode == ModeSync || tgt.blocking {
				d.send(ctx, tgt, event)
				continue
			}
			d.wg.Add(1)
			go func(tgt target, event contractx.Event) {
				defer d.wg.Done()
				d.send(context.WithoutCancel(ctx), tgt, event)
			}(tgt, event)
		}
	}
}

// Flush waits for async deliveries still in flight. Intended for shutdown and
// tests.
func (d *Dispatcher) Flush() {
	d.wg.Wait()
}

func (d *Dispatcher) send(ctx context.Context, tgt target, event contractx.Event) {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			d.log.Warn().
				Str("layer", tgt.id).
				Str("event", string(event.Type)).
				Interface("panic", p).
				Msg("log layer panicked")
		}
	}()

	if err := tgt.impl.Execute(sendCtx, event); err != nil {
		d.log.Warn().
			Err(err).
			Str("layer", tgt.id).
			Str("event", string(event.Type)).
			Msg("log layer failed")
	}
}
