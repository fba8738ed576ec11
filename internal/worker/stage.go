// internal/worker/stage.go
package worker

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Staged generic-event files are named
//
//	<unix>_<instance>_<counter>.json
//
// e.g. 1764721594_sink1_000042.json. Lexicographic order is age order,
// and the instance id names the producer — both matter because failed or
// skipped uploads intentionally leave their staged files behind, and an
// operator cleaning the stage directory needs to know what they are
// looking at.
var stageCounter uint64

// nextStageCounter wraps at one million; the timestamp+instance prefix
// keeps wrapped names from colliding.
func nextStageCounter() uint64 {
	return atomic.AddUint64(&stageCounter, 1) % 1_000_000
}

// NewStageName returns a fresh staged-file name for this instance.
func NewStageName(instanceID string) string {
	return fmt.Sprintf("%d_%s_%06d.json", time.Now().Unix(), instanceID, nextStageCounter())
}
