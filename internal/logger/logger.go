package logger

import (
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

// Options controls the process logger.
type Options struct {
	Level  string
	Format string // "json" or "text"
	Output io.Writer
}

// Init (re)creates the process logger. Unknown levels fall back to info.
func Init(opts Options) *logrus.Logger {
	l := logrus.New()

	switch strings.ToLower(opts.Format) {
	case "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if opts.Output != nil {
		l.SetOutput(opts.Output)
	}

	logger = l
	return l
}

func Get() *logrus.Logger {
	once.Do(func() {
		if logger == nil {
			Init(Options{Level: "info", Format: "json"})
		}
	})
	return logger
}

// Discard returns a logger that drops everything; used by tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
