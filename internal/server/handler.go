package server

import (
	"bytes"
	"io"
	"net/http"
	"sync/atomic"

	"trapsink/internal/config"
	"trapsink/internal/metrics"
	"trapsink/internal/model"
	"trapsink/internal/pool"
	"trapsink/internal/worker"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	cfg     config.Config
	metrics *metrics.Metrics
	worker  *worker.Manager
}

func NewHandler(cfg config.Config, m *metrics.Metrics, w *worker.Manager) *Handler {
	return &Handler{
		cfg:     cfg,
		metrics: m,
		worker:  w,
	}
}

// HandleIngest accepts session records from honeypot producers.
//
// Body is JSON Lines: one record object per line. Producers shipping
// batches may gzip the body (Content-Encoding: gzip). Lines that fail to
// decode are counted and skipped — one garbled record never costs the
// rest of the batch.
//
// Backpressure is fail-fast: when the pipeline queue is full the request
// gets an immediate 503 instead of holding the producer's connection
// open. Honeypot output modules are expected to tolerate sink failures.
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&h.metrics.HTTPRequestsTotal, 1)

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodySize)
	defer r.Body.Close()

	// MaxBytesReader bounds what arrives on the wire; for gzip bodies
	// the cap must also hold after inflation, so the decompressed
	// stream is limited to one byte past the cap and anything that
	// reaches it is rejected below.
	var src io.Reader = r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := pool.GetGzipReader(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer pool.PutGzipReader(gz)
		src = io.LimitReader(gz, h.cfg.MaxBodySize+1)
	}

	buf := pool.BodyPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer pool.PutBody(buf, h.cfg.MaxBodySize*2)

	if _, err := io.Copy(buf, src); err != nil {
		atomic.AddInt64(&h.metrics.HTTPRequestsRejectedBodyTooLargeTotal, 1)
		log.Warn().Str("from", clientIP(r)).Msg("ingest body over limit")
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}
	if int64(buf.Len()) > h.cfg.MaxBodySize {
		atomic.AddInt64(&h.metrics.HTTPRequestsRejectedBodyTooLargeTotal, 1)
		log.Warn().Str("from", clientIP(r)).Msg("ingest body over limit after decompression")
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}

	// The whole body is in memory and within the cap, so lines are
	// walked directly; no per-line buffer limit can abort the batch.
	for _, line := range bytes.Split(buf.Bytes(), []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var rec model.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			atomic.AddInt64(&h.metrics.RecordsDecodeErrorsTotal, 1)
			log.Warn().Err(err).Str("from", clientIP(r)).Msg("undecodable record line, skipping")
			continue
		}

		select {
		case h.worker.RecordCh <- rec:
		default:
			// Queue full. Records already queued from this request
			// stay queued; the producer sees the 503 and backs off.
			atomic.AddInt64(&h.metrics.HTTPRequestsRejectedQueueFullTotal, 1)
			log.Warn().Str("from", clientIP(r)).Msg("record queue full, rejecting")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
	}

	atomic.AddInt64(&h.metrics.HTTPRequestsAcceptedTotal, 1)
	w.WriteHeader(http.StatusOK)
}

// HandleMetrics dumps the sink counters as plain text.
func (h *Handler) HandleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, h.metrics.String())
}
