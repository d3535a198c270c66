// Package logging configures the global zerolog logger for fopsim.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the rotating log file inside the log directory.
const FileName = "fopsim.log"

// Options controls logger setup.
type Options struct {
	Verbose bool
	// Dir overrides LOGS_FOLDER and the binary-relative logs directory.
	Dir string
	// Console receives the human-readable stream. Defaults to os.Stderr.
	Console io.Writer
}

// Init initializes the global logger with a console sink and a rotating file.
// Stdout is never written to, so the MCP stdio transport stays clean.
func Init(verbose bool) {
	if err := Setup(Options{Verbose: verbose}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Setup is Init with explicit options and an error instead of an exit.
func Setup(opts Options) error {
	// Init runs before config.Load, so LOGS_FOLDER may only be in the
	// binary's .env at this point.
	exePath, exeErr := os.Executable()
	if exeErr == nil {
		_ = godotenv.Load(filepath.Join(filepath.Dir(exePath), ".env"))
	}

	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	out := opts.Console
	noColor := true
	if out == nil {
		out = os.Stderr
		noColor = !(isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()))
	}
	consoleWriter := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    noColor,
	}

	logDir := resolveDir(opts.Dir, exePath, exeErr)
	if err := checkWritable(logDir); err != nil {
		return err
	}

	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, FileName),
		MaxSize:    16, // megabytes
		MaxBackups: 32,
		MaxAge:     365, // days
		Compress:   true,
	}

	multi := zerolog.MultiLevelWriter(io.Writer(consoleWriter), fileWriter)
	log.Logger = zerolog.New(multi).
		With().
		Timestamp().
		Logger()
	return nil
}

func resolveDir(dir, exePath string, exeErr error) string {
	if dir != "" {
		return dir
	}
	if env := os.Getenv("LOGS_FOLDER"); env != "" {
		return env
	}
	if exeErr == nil {
		return filepath.Join(filepath.Dir(exePath), "logs")
	}
	return "logs"
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory %q: %w", dir, err)
	}
	probe := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(probe, []byte("test"), 0644); err != nil {
		return fmt.Errorf("log directory %q is not writable: %w", dir, err)
	}
	_ = os.Remove(probe)
	return nil
}
