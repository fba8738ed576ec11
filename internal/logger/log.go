// internal/logger/log.go
package logger

import (
	"io"
	"os"
	"strings"

	"trapsink/internal/config"

	stdlog "log"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger once at startup.
//
//   - LOG_PRETTY=true renders a colored console stream for local work;
//     otherwise plain JSON goes to stdout for whatever log shipper sits
//     in front of the process.
//   - Every line carries "service" and "instance" so logs from many sink
//     instances writing into the same store stay attributable.
//   - Debug/Info lines may be sampled (1/N) under load; Warn/Error are
//     never sampled — a dropped upload error is an invisible data loss.
func Init(cfg config.Config) {
	level := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.LogLevel))); err == nil {
		level = l
	}
	zerolog.SetGlobalLevel(level)

	var w io.Writer
	if cfg.LogPretty {
		w = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	} else {
		w = os.Stdout
	}

	base := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("instance", cfg.InstanceID).
		Logger()

	logger := base
	if cfg.LogSampleN > 1 {
		logger = base.Sample(&zerolog.LevelSampler{
			DebugSampler: &zerolog.BasicSampler{N: cfg.LogSampleN},
			InfoSampler:  &zerolog.BasicSampler{N: cfg.LogSampleN},
			// Warn/Error intentionally unsampled.
		})
	}

	zlog.Logger = logger

	// Route anything still using the stdlib logger through zerolog.
	stdlog.SetFlags(0)
	stdlog.SetOutput(zlog.Logger)
}
