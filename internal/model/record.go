// internal/model/record.go
package model

import "strings"

// Event IDs emitted by the honeypot for captured file artifacts.
// Anything else is treated as a generic session event.
const (
	EventFileDownload = "cowrie.session.file_download"
	EventFileUpload   = "cowrie.session.file_upload"
)

// Record
// ------------------------------------------------------------
// A single session event as produced by the honeypot. The schema is
// open-ended: file artifact records carry eventid/shasum/outfile, generic
// events carry whatever the emitting module attached plus a session id.
//
// Records are kept as a raw map so unknown fields survive untouched all
// the way into the archived serialization.
type Record map[string]any

// str returns the named field if it is a non-empty string.
func (r Record) str(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// EventID returns the record's event identifier ("" if absent).
func (r Record) EventID() string { return r.str("eventid") }

// SHASum returns the content hash of a captured file artifact.
func (r Record) SHASum() string { return r.str("shasum") }

// OutFile returns the local path of a captured file artifact.
func (r Record) OutFile() string { return r.str("outfile") }

// Session returns the session identifier ("" if absent or empty).
func (r Record) Session() string { return r.str("session") }

// StripLogArtifacts returns a copy of the record with transport/log
// bookkeeping fields removed: anything prefixed "log_" plus the "time"
// and "system" markers. These describe how the event travelled through
// the logging machinery, not what happened in the session, so they are
// dropped before the event is serialized for archival.
//
// The receiver is never mutated; the upload pipeline may still be
// hashing the original.
func (r Record) StripLogArtifacts() Record {
	out := make(Record, len(r))
	for k, v := range r {
		if strings.HasPrefix(k, "log_") || k == "time" || k == "system" {
			continue
		}
		out[k] = v
	}
	return out
}
