// Package session resolves the per-OS data directory layout and wires
// up the per-run rotating log file, grounded on original_source's
// _get_data_dir()/_DEFAULT_CONFIG logging section and on the teacher's
// cmd/gateway/main.go slog.NewJSONHandler(os.Stdout, ...) setup.
package session

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nmtuan2007/echo-flux/internal/config"
)

// Paths is the resolved data-directory layout for one process run.
type Paths struct {
	DataDir   string
	ModelsDir string
	LogsDir   string
	LogFile   string
}

// Resolve computes the data directory layout and ensures every
// directory exists.
func Resolve() (Paths, error) {
	p := Paths{
		DataDir:   config.DataDir(),
		ModelsDir: config.ModelsDir(),
		LogsDir:   config.LogsDir(),
	}
	p.LogFile = filepath.Join(p.LogsDir, logFileName(time.Now()))

	for _, dir := range []string{p.DataDir, p.ModelsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Paths{}, fmt.Errorf("session: create %s: %w", dir, err)
		}
	}
	return p, nil
}

func logFileName(t time.Time) string {
	return "session_" + t.Format("20060102_150405") + ".log"
}

// InitLogging installs a JSON slog handler writing to both stdout and a
// rotating per-session log file, and returns the lumberjack sink so the
// caller can close it on shutdown.
func InitLogging(paths Paths) *lumberjack.Logger {
	fileSink := &lumberjack.Logger{
		Filename:   paths.LogFile,
		MaxSize:    10, // megabytes, mirrors original_source's 10MB logging.max_bytes
		MaxBackups: 5,
		LocalTime:  true,
	}

	writer := io.MultiWriter(os.Stdout, fileSink)
	slog.SetDefault(slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: slog.LevelInfo})))
	return fileSink
}
