package logging

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/models"
	"github.com/zhizhunbao/gangwon-business-portal-sub000/internal/repositories"
)

// minPoll bounds how long a batch worker sleeps between queue checks even
// when the flush interval has effectively elapsed.
const minPoll = 100 * time.Millisecond

// RemoteConfig tunes the asynchronous remote writer.
type RemoteConfig struct {
	QueueCapacity int
	BatchSize     int
	BatchInterval time.Duration
	MinLevel      string
	DrainTimeout  time.Duration
	WriteTimeout  time.Duration
	// SyncImmediate forces error/audit/system writes to run on the caller's
	// goroutine instead of fire-and-forget. Used where no background
	// scheduling is wanted (CLI tooling, tests); a record must never be
	// dropped just because nothing is running concurrently.
	SyncImmediate bool
}

func (c *RemoteConfig) applyDefaults() {
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 10000
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.BatchInterval <= 0 {
		c.BatchInterval = 5 * time.Second
	}
	if c.MinLevel == "" {
		c.MinLevel = LevelInfo
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
}

// Stats is a point-in-time snapshot of the writer's counters, exposed on the
// health endpoint.
type Stats struct {
	QueueDepth     map[models.Family]int   `json:"queue_depth"`
	Dropped        map[models.Family]int64 `json:"dropped"`
	RemoteFailures int64                   `json:"remote_failures"`
	Discarded      int64                   `json:"discarded_on_shutdown"`
}

// RemoteWriter delivers records to the remote store. Application and
// performance records go through bounded queues and are flushed in batches
// by background workers; error, audit and system records are written
// immediately. Delivery is at-most-once: a full queue rejects the record, a
// failed write loses it, and both outcomes only move counters — the caller
// is never blocked or handed an error.
type RemoteWriter struct {
	cfg    RemoteConfig
	store  repositories.LogStore
	local  *LocalWriter
	logger *zap.Logger

	queues  map[models.Family]chan models.Record
	dropped map[models.Family]*atomic.Int64

	remoteFailures atomic.Int64
	discarded      atomic.Int64
	stopped        atomic.Bool

	startOnce   sync.Once
	stopOnce    sync.Once
	stopCh      chan struct{}
	workerWG    sync.WaitGroup
	immediateWG sync.WaitGroup
}

// NewRemoteWriter wires the writer against the store. Failures are reported
// through local (the rotating file writer) so that a broken remote path
// still leaves a durable trace on disk. Workers start lazily on the first
// batched write.
func NewRemoteWriter(cfg RemoteConfig, store repositories.LogStore, local *LocalWriter, logger *zap.Logger) *RemoteWriter {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &RemoteWriter{
		cfg:     cfg,
		store:   store,
		local:   local,
		logger:  logger,
		queues:  make(map[models.Family]chan models.Record),
		dropped: make(map[models.Family]*atomic.Int64),
		stopCh:  make(chan struct{}),
	}
	for _, fam := range models.Families {
		w.dropped[fam] = &atomic.Int64{}
		if fam.Batchable() {
			w.queues[fam] = make(chan models.Record, cfg.QueueCapacity)
		}
	}
	return w
}

// Write routes one record. Never blocks materially, never returns an error.
func (w *RemoteWriter) Write(rec models.Record, family models.Family) {
	if !ShouldWrite(rec.Level, w.cfg.MinLevel) {
		return
	}
	if family.Batchable() {
		w.ensureStarted()
		w.enqueue(rec, family)
		return
	}
	if w.stopped.Load() {
		w.dropped[family].Add(1)
		return
	}
	if w.cfg.SyncImmediate {
		w.sendOne(rec, family)
		return
	}
	w.immediateWG.Add(1)
	go func() {
		defer w.immediateWG.Done()
		w.sendOne(rec, family)
	}()
}

// enqueue performs the non-blocking push onto the bounded queue. A full
// queue rejects the record and moves the drop counter; it never waits for
// capacity.
func (w *RemoteWriter) enqueue(rec models.Record, family models.Family) {
	if w.stopped.Load() {
		w.dropped[family].Add(1)
		return
	}
	select {
	case w.queues[family] <- rec:
	default:
		n := w.dropped[family].Add(1)
		w.logger.Warn("remote log queue full, record dropped",
			zap.String("family", string(family)),
			zap.Int64("dropped_total", n))
	}
}

func (w *RemoteWriter) ensureStarted() {
	w.startOnce.Do(func() {
		for fam, ch := range w.queues {
			w.workerWG.Add(1)
			go w.runWorker(fam, ch)
		}
		w.logger.Info("remote log writer workers started",
			zap.Int("queue_capacity", w.cfg.QueueCapacity),
			zap.Int("batch_size", w.cfg.BatchSize),
			zap.Duration("batch_interval", w.cfg.BatchInterval))
	})
}

// runWorker accumulates a batch for one family, flushing when the batch is
// full or the interval since the last flush elapses.
func (w *RemoteWriter) runWorker(family models.Family, ch <-chan models.Record) {
	defer w.workerWG.Done()

	batch := make([]models.Record, 0, w.cfg.BatchSize)
	lastFlush := time.Now()

	flush := func() {
		if len(batch) == 0 {
			lastFlush = time.Now()
			return
		}
		w.flushBatch(family, batch)
		batch = batch[:0]
		lastFlush = time.Now()
	}

	for {
		wait := w.cfg.BatchInterval - time.Since(lastFlush)
		if wait < minPoll {
			wait = minPoll
		}
		timer := time.NewTimer(wait)

		select {
		case rec := <-ch:
			timer.Stop()
			batch = append(batch, rec)
			if len(batch) >= w.cfg.BatchSize {
				flush()
			}
		case <-timer.C:
			flush()
		case <-w.stopCh:
			timer.Stop()
			// Final drain: take whatever is already queued, flush once.
		drain:
			for {
				select {
				case rec := <-ch:
					batch = append(batch, rec)
				default:
					break drain
				}
			}
			flush()
			return
		}
	}
}

// flushBatch writes one batch as a unit. On failure the whole batch is lost
// and the failure counter moves once.
func (w *RemoteWriter) flushBatch(family models.Family, batch []models.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.WriteTimeout)
	defer cancel()
	if err := w.store.InsertBatch(ctx, family, batch); err != nil {
		w.remoteFailures.Add(1)
		w.reportFailure("remote batch write failed", family, len(batch), err)
		return
	}
	w.logger.Debug("remote batch flushed",
		zap.String("family", string(family)),
		zap.Int("count", len(batch)))
}

// sendOne writes a single immediate-family record.
func (w *RemoteWriter) sendOne(rec models.Record, family models.Family) {
	ctx, cancel := context.WithTimeout(context.Background(), w.cfg.WriteTimeout)
	defer cancel()
	if err := w.store.Insert(ctx, family, rec); err != nil {
		w.remoteFailures.Add(1)
		w.reportFailure("remote write failed", family, 1, err)
	}
}

// reportFailure records a delivery failure through the local writer's own
// file. It deliberately uses the dumbest path available so a failing remote
// store cannot recursively trigger more remote writes.
func (w *RemoteWriter) reportFailure(msg string, family models.Family, count int, err error) {
	w.logger.Warn(msg,
		zap.String("family", string(family)),
		zap.Int("record_count", count),
		zap.Error(err))
	if w.local == nil {
		return
	}
	w.local.Write(models.Record{
		Source:    "log-pipeline",
		Level:     LevelWarning,
		Message:   msg,
		Module:    "logging.remote",
		CreatedAt: time.Now().UTC(),
		ExtraData: map[string]interface{}{
			"family":       string(family),
			"record_count": count,
			"error":        err.Error(),
		},
	}, models.FamilySystem)
}

// Stop drains the queues and flushes what remains, bounded by DrainTimeout.
// Records still queued when the timeout fires are discarded; the discard is
// counted and reported, never silent. Safe to call more than once.
func (w *RemoteWriter) Stop() {
	w.stopOnce.Do(func() {
		w.stopped.Store(true)
		close(w.stopCh)

		done := make(chan struct{})
		go func() {
			w.workerWG.Wait()
			w.immediateWG.Wait()
			close(done)
		}()

		select {
		case <-done:
			w.logger.Info("remote log writer drained and stopped")
		case <-time.After(w.cfg.DrainTimeout):
			var left int64
			for _, ch := range w.queues {
				left += int64(len(ch))
			}
			w.discarded.Add(left)
			w.logger.Error("remote log writer drain timed out, queued records discarded",
				zap.Int64("discarded", left),
				zap.Duration("timeout", w.cfg.DrainTimeout))
			if w.local != nil {
				w.local.Write(models.Record{
					Source:    "log-pipeline",
					Level:     LevelError,
					Message:   "shutdown drain timed out, queued records discarded",
					Module:    "logging.remote",
					CreatedAt: time.Now().UTC(),
					ExtraData: map[string]interface{}{"discarded": left},
				}, models.FamilySystem)
			}
		}
	})
}

// Snapshot returns the current counters.
func (w *RemoteWriter) Snapshot() Stats {
	s := Stats{
		QueueDepth:     make(map[models.Family]int),
		Dropped:        make(map[models.Family]int64),
		RemoteFailures: w.remoteFailures.Load(),
		Discarded:      w.discarded.Load(),
	}
	for fam, ch := range w.queues {
		s.QueueDepth[fam] = len(ch)
	}
	for fam, c := range w.dropped {
		if n := c.Load(); n > 0 || fam.Batchable() {
			s.Dropped[fam] = n
		}
	}
	return s
}
