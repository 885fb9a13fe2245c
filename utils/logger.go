package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
	"time"
)

// Logger provides leveled logging throughout the application.
type Logger struct {
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
	debug *log.Logger

	prefix    string
	debugMode *atomic.Bool
}

// NewLogger creates a new Logger writing to stdout/stderr.
func NewLogger() *Logger {
	return NewLoggerTo(os.Stdout, os.Stderr)
}

// NewLoggerTo creates a Logger writing info/warn/debug lines to out and errors to errOut.
func NewLoggerTo(out, errOut io.Writer) *Logger {
	flags := 0
	return &Logger{
		info:      log.New(out, "", flags),
		warn:      log.New(out, "", flags),
		err:       log.New(errOut, "", flags),
		debug:     log.New(out, "", flags),
		debugMode: &atomic.Bool{},
	}
}

// MirrorTo additionally copies every line to w (the run log file).
func (l *Logger) MirrorTo(w io.Writer) {
	l.info.SetOutput(io.MultiWriter(l.info.Writer(), w))
	l.warn.SetOutput(io.MultiWriter(l.warn.Writer(), w))
	l.err.SetOutput(io.MultiWriter(l.err.Writer(), w))
	l.debug.SetOutput(io.MultiWriter(l.debug.Writer(), w))
}

// SetDebug toggles Debug output. It is off by default.
func (l *Logger) SetDebug(on bool) {
	l.debugMode.Store(on)
}

// With returns a logger sharing the same outputs whose lines carry "[component]".
func (l *Logger) With(component string) *Logger {
	child := *l
	child.prefix = "[" + component + "] "
	return &child
}

func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (l *Logger) Info(format string, args ...any) {
	l.info.Print(fmt.Sprintf("[%s] \033[32mINFO\033[0m  %s%s", l.timestamp(), l.prefix, fmt.Sprintf(format, args...)))
}

func (l *Logger) Warn(format string, args ...any) {
	l.warn.Print(fmt.Sprintf("[%s] \033[33mWARN\033[0m  %s%s", l.timestamp(), l.prefix, fmt.Sprintf(format, args...)))
}

func (l *Logger) Error(format string, args ...any) {
	l.err.Print(fmt.Sprintf("[%s] \033[31mERROR\033[0m %s%s", l.timestamp(), l.prefix, fmt.Sprintf(format, args...)))
}

func (l *Logger) Debug(format string, args ...any) {
	if !l.debugMode.Load() {
		return
	}
	l.debug.Print(fmt.Sprintf("[%s] \033[36mDEBUG\033[0m %s%s", l.timestamp(), l.prefix, fmt.Sprintf(format, args...)))
}
