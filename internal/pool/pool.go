package pool

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
)

// ---------------------------------------------------------------
// The ingest endpoint allocates on every request: a buffer for the
// body, and — for producers that ship compressed batches — a gzip
// reader. Both are pooled to keep GC pressure flat under a busy
// honeypot fleet.
// ---------------------------------------------------------------

var (
	// BodyPool holds request-body buffers. 4KB initial capacity covers
	// the typical single-record POST; oversized buffers are not
	// returned (see PutBody).
	BodyPool = sync.Pool{
		New: func() any {
			return bytes.NewBuffer(make([]byte, 0, 4*1024))
		},
	}

	gzipReaderPool = sync.Pool{
		New: func() any { return new(gzip.Reader) },
	}
)

// Buffers above this capacity are abandoned to the GC instead of being
// pooled, so one pathological request can't pin memory forever.
const MaxBufferCap = 1 * 1024 * 1024 // 1MB

// PutBody returns buf to the pool unless it grew past maxCap.
func PutBody(buf *bytes.Buffer, maxCap int64) {
	if int64(buf.Cap()) <= maxCap && buf.Cap() <= MaxBufferCap {
		buf.Reset()
		BodyPool.Put(buf)
	}
}

// GetGzipReader returns a pooled gzip reader reset onto src.
func GetGzipReader(src io.Reader) (*gzip.Reader, error) {
	gz := gzipReaderPool.Get().(*gzip.Reader)
	if err := gz.Reset(src); err != nil {
		gzipReaderPool.Put(gz)
		return nil, err
	}
	return gz, nil
}

// PutGzipReader closes and recycles a reader obtained from GetGzipReader.
func PutGzipReader(gz *gzip.Reader) {
	_ = gz.Close()
	gzipReaderPool.Put(gz)
}
