// internal/worker/archiver.go
package worker

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"trapsink/internal/metrics"

	"github.com/rs/zerolog/log"
)

// Archived payloads are opaque binaries (captured samples, serialized
// event records) regardless of what they contain.
const contentTypeBinary = "application/octet-stream"

// Archiver runs the check-and-upload sequence for one content key:
//
//	seen cache → existence probe → put → delete staged file → mark seen
//
// Any number of sink instances may run the same sequence for the same
// key concurrently; that race is accepted because putting identical
// content under a content-derived key is a no-op in practice. The cache
// only saves round-trips, it never arbitrates.
type Archiver struct {
	store   ObjectStore
	cache   *SeenCache
	metrics *metrics.Metrics
}

func NewArchiver(store ObjectStore, cache *SeenCache, m *metrics.Metrics) *Archiver {
	return &Archiver{
		store:   store,
		cache:   cache,
		metrics: m,
	}
}

// Upload archives the staged file at path under key, unless the content
// is already known to be remote.
//
// On the two skip paths (cache hit, object found remotely) the staged
// file is left untouched: for captured artifacts the capture directory
// owns the original, and for generic events the temp file stays behind.
// The latter mirrors the original sink's behavior; whether those
// leftovers should be reaped is an unresolved retention question, so
// they are deliberately not deleted here.
//
// On any failure the staged file is also preserved — the artifact must
// not be lost on a failed attempt — and the key is not marked seen, so
// a later occurrence of the same content retries the full sequence.
// There is no retry here.
func (a *Archiver) Upload(ctx context.Context, key, path string) error {
	if a.cache.Seen(key) {
		atomic.AddInt64(&a.metrics.UploadsSkippedSeenTotal, 1)
		log.Info().Str("key", key).Msg("already uploaded, skipping")
		return nil
	}

	exists, err := a.store.Exists(ctx, key)
	if err != nil {
		atomic.AddInt64(&a.metrics.S3HeadErrorsTotal, 1)
		return fmt.Errorf("existence check %s: %w", key, err)
	}
	if exists {
		a.cache.MarkSeen(key)
		atomic.AddInt64(&a.metrics.UploadsSkippedRemoteTotal, 1)
		log.Info().Str("key", key).Msg("somebody else already uploaded, skipping")
		return nil
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read staged file %s: %w", path, err)
	}

	log.Info().Str("key", key).Str("file", path).Int("bytes", len(body)).Msg("uploading")

	if err := a.store.Put(ctx, key, body, contentTypeBinary); err != nil {
		atomic.AddInt64(&a.metrics.S3PutErrorsTotal, 1)
		return fmt.Errorf("put %s: %w", key, err)
	}

	// The object is durable; the local copy is no longer needed. A
	// failed remove fails the attempt without marking the key seen, so
	// the next occurrence re-checks and retries the cleanup.
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove staged file %s: %w", path, err)
	}
	atomic.AddInt64(&a.metrics.StagedFilesDeletedTotal, 1)

	a.cache.MarkSeen(key)
	atomic.AddInt64(&a.metrics.UploadsCompletedTotal, 1)
	atomic.AddInt64(&a.metrics.UploadedBytesTotal, int64(len(body)))

	return nil
}

// SeenFast exposes the cache fast path so the dispatch loop can skip
// spawning an upload worker for keys already confirmed remote. The skip
// is logged and counted in Upload; this is only the cheap pre-check.
func (a *Archiver) SeenFast(key string) bool {
	return a.cache.Seen(key)
}
