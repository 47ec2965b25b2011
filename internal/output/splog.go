// Package output provides console logging for pipeline steps, with optional
// rotating file logs and GitHub Actions workflow-command formatting.
package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// simpleHandler is a custom slog handler that writes messages without timestamps or level prefixes
type simpleHandler struct {
	writer    io.Writer
	debugMode bool
}

func (h *simpleHandler) Enabled(_ context.Context, level slog.Level) bool {
	if level == slog.LevelDebug {
		return h.debugMode
	}
	return true
}

func (h *simpleHandler) Handle(_ context.Context, record slog.Record) error {
	_, err := fmt.Fprintln(h.writer, record.Message)
	return err
}

func (h *simpleHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *simpleHandler) WithGroup(_ string) slog.Handler {
	return h
}

// createLumberjackLogger creates a lumberjack logger with configuration from environment variables
func createLumberjackLogger(logFilePath string) *lumberjack.Logger {
	config := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    1,
		MaxBackups: 2,
		MaxAge:     30,
		Compress:   false,
	}

	if maxSizeStr := os.Getenv("CIHELPER_LOG_MAX_SIZE"); maxSizeStr != "" {
		if maxSize, err := strconv.Atoi(maxSizeStr); err == nil && maxSize > 0 {
			config.MaxSize = maxSize
		}
	}

	if maxBackupsStr := os.Getenv("CIHELPER_LOG_MAX_BACKUPS"); maxBackupsStr != "" {
		if maxBackups, err := strconv.Atoi(maxBackupsStr); err == nil && maxBackups >= 0 {
			config.MaxBackups = maxBackups
		}
	}

	if maxAgeStr := os.Getenv("CIHELPER_LOG_MAX_AGE"); maxAgeStr != "" {
		if maxAge, err := strconv.Atoi(maxAgeStr); err == nil && maxAge > 0 {
			config.MaxAge = maxAge
		}
	}

	return config
}

// Splog provides console output for handlers plus an optional rotating debug log
type Splog struct {
	logger    *slog.Logger
	writer    io.Writer
	logWriter io.WriteCloser
	actions   bool
	colorize  bool
}

// NewSplog creates a splog writing to stdout.
// Debug messages are enabled when the DEBUG or RUNNER_DEBUG environment variable is set.
// When CIHELPER_LOG_FILE is set, everything is additionally logged to that file with rotation;
// a log path that cannot be set up is reported on stderr and console logging continues.
func NewSplog() *Splog {
	splog, err := NewSplogWithWriter(os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v; file logging disabled\n", err)
	}
	return splog
}

// NewSplogWithWriter creates a splog writing console output to w.
// On error the returned splog is still usable for console logging.
func NewSplogWithWriter(w io.Writer) (*Splog, error) {
	debugMode := os.Getenv("DEBUG") != "" || os.Getenv("RUNNER_DEBUG") == "1"

	splog := &Splog{
		writer:  w,
		actions: os.Getenv("GITHUB_ACTIONS") == "true",
	}

	if f, ok := w.(*os.File); ok {
		splog.colorize = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	handler := slog.Handler(&simpleHandler{writer: w, debugMode: debugMode})

	if logFilePath := os.Getenv("CIHELPER_LOG_FILE"); logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0750); err != nil {
			splog.logger = slog.New(handler)
			return splog, fmt.Errorf("failed to create log directory: %w", err)
		}
		splog.logWriter = createLumberjackLogger(logFilePath)
		fileHandler := slog.NewTextHandler(splog.logWriter, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		handler = &teeHandler{console: handler, file: fileHandler}
	}

	splog.logger = slog.New(handler)
	return splog, nil
}

// teeHandler duplicates records to the console handler and the file handler
type teeHandler struct {
	console slog.Handler
	file    slog.Handler
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.console.Enabled(ctx, level) || h.file.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.console.Enabled(ctx, record.Level) {
		if err := h.console.Handle(ctx, record); err != nil {
			return err
		}
	}
	return h.file.Handle(ctx, record)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{console: h.console.WithAttrs(attrs), file: h.file.WithAttrs(attrs)}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{console: h.console.WithGroup(name), file: h.file.WithGroup(name)}
}

// Close releases the rotating log file, if one was opened
func (s *Splog) Close() error {
	if s.logWriter != nil {
		return s.logWriter.Close()
	}
	return nil
}

// Info writes an info message
func (s *Splog) Info(format string, args ...interface{}) {
	s.logger.Info(fmt.Sprintf(format, args...))
}

// Warn writes a warning message. Under GitHub Actions this produces a
// ::warning:: annotation visible in the run UI.
func (s *Splog) Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if s.actions {
		s.logger.Warn("::warning::" + msg)
		return
	}
	s.logger.Warn(s.color(yellow, "warning: ") + msg)
}

// Notice writes a notice message, annotated under GitHub Actions.
func (s *Splog) Notice(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if s.actions {
		s.logger.Info("::notice::" + msg)
		return
	}
	s.logger.Info(msg)
}

// Error writes an error message, annotated under GitHub Actions.
func (s *Splog) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if s.actions {
		s.logger.Error("::error::" + msg)
		return
	}
	s.logger.Error(s.color(red, "error: ") + msg)
}

// Debug writes a debug message, visible only when debug mode is enabled
func (s *Splog) Debug(format string, args ...interface{}) {
	s.logger.Debug(fmt.Sprintf(format, args...))
}

// Group starts a collapsible output group under GitHub Actions; plain header otherwise.
func (s *Splog) Group(title string) {
	if s.actions {
		s.logger.Info("::group::" + title)
		return
	}
	s.logger.Info("--- " + title)
}

// EndGroup closes the current output group
func (s *Splog) EndGroup() {
	if s.actions {
		s.logger.Info("::endgroup::")
	}
}

// Newline writes a blank line
func (s *Splog) Newline() {
	fmt.Fprintln(s.writer)
}

const (
	yellow = "33"
	red    = "31"
)

func (s *Splog) color(code, text string) string {
	if !s.colorize {
		return text
	}
	return "\x1b[" + code + "m" + text + "\x1b[0m"
}
