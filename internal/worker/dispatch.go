// internal/worker/dispatch.go
package worker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"trapsink/internal/config"
	"trapsink/internal/metrics"
	"trapsink/internal/model"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// UploadJob is one unit of work for the upload pipeline: a content key
// and the staged file whose bytes belong under it.
type UploadJob struct {
	Key  string // content-derived object key
	Path string // staged file (payload), consumed by the archiver
}

// Dispatcher classifies incoming records and derives the content key and
// staged file for each:
//
//   - file-download artifact → downloads/<shasum>, payload is the file
//     the capture already materialized;
//   - file-upload artifact → uploads/<shasum>, same;
//   - anything else is a generic session event: the record is
//     canonically serialized, hashed, written to a fresh staged file and
//     keyed events/<session>-<hash>.
//
// A record that cannot be dispatched (no session, unserializable
// payload, missing artifact fields) is logged and dropped; a bad record
// must never take the event pipeline down.
type Dispatcher struct {
	cfg     config.Config
	metrics *metrics.Metrics
}

func NewDispatcher(cfg config.Config, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{cfg: cfg, metrics: m}
}

// Stage turns one record into an UploadJob. ok is false when the record
// was dropped (already logged and counted).
func (d *Dispatcher) Stage(rec model.Record) (UploadJob, bool) {
	switch rec.EventID() {
	case model.EventFileDownload:
		return d.stageArtifact(rec, "downloads/", &d.metrics.RecordsFileDownloadTotal)
	case model.EventFileUpload:
		return d.stageArtifact(rec, "uploads/", &d.metrics.RecordsFileUploadTotal)
	default:
		return d.stageEvent(rec)
	}
}

// stageArtifact handles captured file records. The file already exists
// on disk (the capture subsystem wrote it); only the key is derived.
func (d *Dispatcher) stageArtifact(rec model.Record, ns string, counter *int64) (UploadJob, bool) {
	shasum, outfile := rec.SHASum(), rec.OutFile()
	if shasum == "" || outfile == "" {
		log.Warn().
			Str("eventid", rec.EventID()).
			Str("shasum", shasum).
			Str("outfile", outfile).
			Msg("artifact record missing shasum/outfile, dropping")
		return UploadJob{}, false
	}

	atomic.AddInt64(counter, 1)
	return UploadJob{Key: ns + shasum, Path: outfile}, true
}

// stageEvent handles generic session events.
//
// The content hash is computed over the canonical serialization of the
// record as received, before stripping, so structurally distinct events
// never collide even when their archival forms coincide. The staged
// payload is the stripped record: log-transport fields (log_*, time,
// system) say nothing about the session and are not archived.
//
// Events without a session id are unattributable and dropped without a
// staged file ever being created.
func (d *Dispatcher) stageEvent(rec model.Record) (UploadJob, bool) {
	raw, err := json.Marshal(rec)
	if err != nil {
		atomic.AddInt64(&d.metrics.RecordsSerializeErrorsTotal, 1)
		log.Error().Err(err).Str("record", fmt.Sprintf("%v", rec)).Msg("can't serialize record, dropping")
		return UploadJob{}, false
	}

	session := rec.Session()
	if session == "" {
		atomic.AddInt64(&d.metrics.RecordsDroppedNoSessionTotal, 1)
		log.Debug().Str("eventid", rec.EventID()).Msg("event without session, dropping")
		return UploadJob{}, false
	}

	payload, err := json.Marshal(rec.StripLogArtifacts())
	if err != nil {
		atomic.AddInt64(&d.metrics.RecordsSerializeErrorsTotal, 1)
		log.Error().Err(err).Str("record", fmt.Sprintf("%v", rec)).Msg("can't serialize record, dropping")
		return UploadJob{}, false
	}

	path := filepath.Join(d.cfg.StageDir, NewStageName(d.cfg.InstanceID))
	if err := os.WriteFile(path, append(payload, '\n'), 0o600); err != nil {
		log.Error().Err(err).Str("file", path).Msg("can't stage event record, dropping")
		_ = os.Remove(path)
		return UploadJob{}, false
	}

	sum := sha256.Sum256(raw)
	key := "events/" + session + "-" + hex.EncodeToString(sum[:])

	atomic.AddInt64(&d.metrics.RecordsEventTotal, 1)
	return UploadJob{Key: key, Path: path}, true
}
