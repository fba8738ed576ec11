// internal/worker/manager.go
package worker

import (
	"context"
	"sync"

	"trapsink/internal/config"
	"trapsink/internal/metrics"
	"trapsink/internal/model"

	"github.com/rs/zerolog/log"
)

// Manager is the sink pipeline. Records arrive on RecordCh from the
// ingest handler; a single dispatch goroutine classifies and stages them
// (fast, local-only work: hashing, temp-file writes) and checks the
// dedup fast path; the remote check-and-upload then runs on a bounded
// pool of worker goroutines so the dispatch loop never waits on the
// network.
//
// Two back-to-back records for the same key are caught by the
// synchronous fast-path check; once an upload is in flight a concurrent
// record for the same key may still slip past (the cache is only marked
// on confirmation). That duplicate upload is harmless — same bytes,
// same key.
type Manager struct {
	cfg        config.Config
	metrics    *metrics.Metrics
	dispatcher *Dispatcher
	archiver   *Archiver

	RecordCh chan model.Record // ingest handler pushes here

	sem chan struct{} // upload worker slots

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup // dispatch loop
	uploads  sync.WaitGroup // in-flight uploads
	stopOnce sync.Once
}

// NewManager wires the dispatcher and archiver around the given store.
// The store is injected so tests can substitute a fake.
func NewManager(cfg config.Config, m *metrics.Metrics, store ObjectStore) *Manager {
	return &Manager{
		cfg:        cfg,
		metrics:    m,
		dispatcher: NewDispatcher(cfg, m),
		archiver:   NewArchiver(store, NewSeenCache(), m),
		RecordCh:   make(chan model.Record, cfg.ChannelSize),
		sem:        make(chan struct{}, cfg.UploadWorkers),
	}
}

func (m *Manager) Start() {
	m.ctx, m.cancel = context.WithCancel(context.Background())

	m.wg.Add(1)
	go m.dispatchLoop()
}

// Shutdown drains the record queue, waits for in-flight uploads (each
// bounded by the per-call S3 timeout) and only then cancels the context.
// Callers must stop feeding RecordCh first (main shuts the HTTP server
// down before calling this).
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() {
		close(m.RecordCh)
	})
	m.wg.Wait()
	m.uploads.Wait()
	if m.cancel != nil {
		m.cancel()
	}
	log.Info().Msg("sink pipeline stopped")
}

// dispatchLoop consumes records until RecordCh is closed. Staging runs
// inline; only the remote sequence is handed off.
func (m *Manager) dispatchLoop() {
	defer m.wg.Done()

	for rec := range m.RecordCh {
		job, ok := m.dispatcher.Stage(rec)
		if !ok {
			continue
		}
		m.launch(job)
	}
	log.Info().Msg("dispatcher exiting")
}

// launch runs one upload. Keys already confirmed remote are resolved
// inline — Upload returns immediately off the cache without touching the
// network, so the loop is never blocked. Everything else takes a worker
// slot; acquiring one blocks when all workers are busy, which is the
// backpressure that eventually surfaces to producers as a full RecordCh.
func (m *Manager) launch(job UploadJob) {
	if m.archiver.SeenFast(job.Key) {
		_ = m.archiver.Upload(m.ctx, job.Key, job.Path)
		return
	}

	select {
	case m.sem <- struct{}{}:
	case <-m.ctx.Done():
		return
	}

	m.uploads.Add(1)
	go func() {
		defer func() {
			<-m.sem
			m.uploads.Done()
		}()

		if err := m.archiver.Upload(m.ctx, job.Key, job.Path); err != nil {
			// Failure is surfaced and tolerated: the staged file is
			// still on disk and the key was not marked seen, so the
			// next occurrence of this content retries from scratch.
			log.Error().Err(err).Str("key", job.Key).Str("file", job.Path).Msg("upload failed")
		}
	}()
}
