package metrics

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics is the set of counters describing sink health. They are not a
// Prometheus surface; they are the raw numbers an operator needs when
// asking "is the honeypot data actually landing in the bucket".
type Metrics struct {
	// ======================
	// HTTP / ingestion
	// ======================

	// Every request that reached /ingest, regardless of outcome.
	HTTPRequestsTotal int64

	// Requests whose records were all queued into the pipeline.
	HTTPRequestsAcceptedTotal int64

	// Requests rejected with 413 (body over MAX_BODY_SIZE).
	HTTPRequestsRejectedBodyTooLargeTotal int64

	// Requests rejected with 503 because the record queue was full.
	// Sustained growth means the upload stage can't keep up.
	HTTPRequestsRejectedQueueFullTotal int64

	// Individual JSONL lines that failed to decode. The rest of the
	// request is still processed; a garbled line never costs a batch.
	RecordsDecodeErrorsTotal int64

	// ======================
	// Classification
	// ======================

	RecordsFileDownloadTotal int64 // captured download artifacts
	RecordsFileUploadTotal   int64 // captured upload artifacts
	RecordsEventTotal        int64 // generic session events staged

	// Generic events without a session id. Unattributable, dropped.
	RecordsDroppedNoSessionTotal int64

	// Generic events whose payload could not be serialized. Dropped
	// after logging the record representation.
	RecordsSerializeErrorsTotal int64

	// ======================
	// Dedup / upload
	// ======================

	// Uploads short-circuited by the in-process seen cache (no remote
	// call at all).
	UploadsSkippedSeenTotal int64

	// Uploads skipped because the existence probe found the object —
	// typically another sink instance already archived the content.
	UploadsSkippedRemoteTotal int64

	// HeadObject calls that failed with something other than 404.
	S3HeadErrorsTotal int64

	// PutObject calls that failed.
	S3PutErrorsTotal int64

	// Objects actually written to the store, and their payload bytes.
	UploadsCompletedTotal int64
	UploadedBytesTotal    int64

	// Staged files removed after a confirmed upload.
	StagedFilesDeletedTotal int64
}

func New() *Metrics {
	return &Metrics{}
}

func (m *Metrics) String() string {
	var sb strings.Builder
	sb.Grow(512)

	fmt.Fprintf(&sb, "http_requests_total=%d\n", atomic.LoadInt64(&m.HTTPRequestsTotal))
	fmt.Fprintf(&sb, "http_requests_accepted_total=%d\n", atomic.LoadInt64(&m.HTTPRequestsAcceptedTotal))
	fmt.Fprintf(&sb, "http_requests_rejected_body_too_large_total=%d\n", atomic.LoadInt64(&m.HTTPRequestsRejectedBodyTooLargeTotal))
	fmt.Fprintf(&sb, "http_requests_rejected_queue_full_total=%d\n", atomic.LoadInt64(&m.HTTPRequestsRejectedQueueFullTotal))
	fmt.Fprintf(&sb, "records_decode_errors_total=%d\n", atomic.LoadInt64(&m.RecordsDecodeErrorsTotal))

	fmt.Fprintf(&sb, "records_file_download_total=%d\n", atomic.LoadInt64(&m.RecordsFileDownloadTotal))
	fmt.Fprintf(&sb, "records_file_upload_total=%d\n", atomic.LoadInt64(&m.RecordsFileUploadTotal))
	fmt.Fprintf(&sb, "records_event_total=%d\n", atomic.LoadInt64(&m.RecordsEventTotal))
	fmt.Fprintf(&sb, "records_dropped_no_session_total=%d\n", atomic.LoadInt64(&m.RecordsDroppedNoSessionTotal))
	fmt.Fprintf(&sb, "records_serialize_errors_total=%d\n", atomic.LoadInt64(&m.RecordsSerializeErrorsTotal))

	fmt.Fprintf(&sb, "uploads_skipped_seen_total=%d\n", atomic.LoadInt64(&m.UploadsSkippedSeenTotal))
	fmt.Fprintf(&sb, "uploads_skipped_remote_total=%d\n", atomic.LoadInt64(&m.UploadsSkippedRemoteTotal))
	fmt.Fprintf(&sb, "s3_head_errors_total=%d\n", atomic.LoadInt64(&m.S3HeadErrorsTotal))
	fmt.Fprintf(&sb, "s3_put_errors_total=%d\n", atomic.LoadInt64(&m.S3PutErrorsTotal))
	fmt.Fprintf(&sb, "uploads_completed_total=%d\n", atomic.LoadInt64(&m.UploadsCompletedTotal))
	fmt.Fprintf(&sb, "uploaded_bytes_total=%d\n", atomic.LoadInt64(&m.UploadedBytesTotal))
	fmt.Fprintf(&sb, "staged_files_deleted_total=%d\n", atomic.LoadInt64(&m.StagedFilesDeletedTotal))

	return sb.String()
}
