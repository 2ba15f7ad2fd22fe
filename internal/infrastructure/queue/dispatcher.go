package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/servicehub/session-gateway/internal/api/metrics"
	"github.com/servicehub/session-gateway/internal/core/domain"
	"github.com/servicehub/session-gateway/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher fans session transitions out to a fixed set of audit workers,
// sharding on the client id so each client's trail stays in order.
type Dispatcher struct {
	workers []chan domain.Transition
	service ports.AuditService
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.AuditService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.Transition, numWorkers),
		service: service,
		log:     log.With().Str("component", "audit_dispatcher").Logger(),
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Transition, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Observe enqueues t without blocking the session. A full shard drops the
// transition.
func (d *Dispatcher) Observe(t domain.Transition) {
	if t.Phase == domain.PhasePending {
		return
	}
	idx := d.shardIndex(t.ClientID)
	select {
	case d.workers[idx] <- t:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.AuditErrorsTotal.WithLabelValues("dropped").Inc()
		d.log.Warn().
			Str("client_id", t.ClientID).
			Str("op", string(t.Op)).
			Int("worker_id", idx).
			Msg("audit queue full, transition dropped")
	}
}

// shardIndex maps a client id deterministically to a worker index.
func (d *Dispatcher) shardIndex(clientID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(clientID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.Transition) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ch:
			metrics.AuditQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			// The request context may be gone by now; audit writes use the worker's.
			if err := d.service.Record(ctx, t); err != nil {
				d.log.Error().Err(err).
					Str("client_id", t.ClientID).
					Str("op", string(t.Op)).
					Int("worker_id", id).
					Msg("audit record failed")
			}
		}
	}
}
