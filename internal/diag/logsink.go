// File: internal/diag/logsink.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package diag

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nemoofnemo/LinuxServer/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ConsoleTarget selects stdout as the sink target.
const ConsoleTarget = "console"

// timestampLayout renders as "[2006/01/02 15:04:05] ".
const timestampLayout = "[2006/01/02 15:04:05] "

var _ api.LogSink = (*LogSink)(nil)

// LogSink writes formatted text to stdout or a single file. All writes,
// including those of the structured logger returned by Logger, go through
// one locked syncer and never interleave.
type LogSink struct {
	target string
	file   *os.File
	ws     zapcore.WriteSyncer
	now    func() time.Time
}

// OpenLogSink opens target. "console" writes to stdout; anything else is a
// file path opened with mode "w"/"w+" (truncate) or "a"/"a+" (append).
func OpenLogSink(target, mode string) (*LogSink, error) {
	if target == "" || target == ConsoleTarget {
		return &LogSink{
			target: ConsoleTarget,
			ws:     zapcore.Lock(zapcore.AddSync(os.Stdout)),
			now:    time.Now,
		}, nil
	}

	var flags int
	switch mode {
	case "", "w", "w+":
		flags = os.O_CREATE | os.O_TRUNC | os.O_RDWR
	case "a", "a+":
		flags = os.O_CREATE | os.O_APPEND | os.O_RDWR
	default:
		return nil, fmt.Errorf("log sink mode %q: %w", mode, api.ErrInvalidArgument)
	}
	f, err := os.OpenFile(target, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log sink %s: %w", target, err)
	}
	return &LogSink{
		target: target,
		file:   f,
		ws:     zapcore.Lock(f),
		now:    time.Now,
	}, nil
}

// Target returns "console" or the file path.
func (s *LogSink) Target() string { return s.target }

// Write formats the message and prefixes a UTC timestamp.
func (s *LogSink) Write(format string, args ...any) (int, error) {
	ts := s.now().UTC().Format(timestampLayout)
	return s.ws.Write([]byte(ts + fmt.Sprintf(format, args...)))
}

// Print formats the message and writes it as is.
func (s *LogSink) Print(format string, args ...any) (int, error) {
	return s.ws.Write([]byte(fmt.Sprintf(format, args...)))
}

// Flush commits buffered output to the target.
func (s *LogSink) Flush() error {
	if s.file == nil {
		// stdout may be a terminal or pipe that rejects fsync
		return nil
	}
	return s.ws.Sync()
}

// Close flushes and closes a file target.
func (s *LogSink) Close() error {
	if s.file == nil {
		return nil
	}
	if err := s.ws.Sync(); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}

// Logger returns a structured logger writing through this sink at the
// given level (debug, info, warn, error; case-insensitive).
func (s *LogSink) Logger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), s.ws, lvl)
	return zap.New(core, zap.ErrorOutput(s.ws)), nil
}
