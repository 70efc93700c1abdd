// Package logging builds the zerolog logger shared by the engine and the CLI.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

const permission = 0o664

// Builder collects logger options.
type Builder struct {
	writer io.Writer
	path   string
	level  zerolog.Level
}

// Logger is a built logger and the file it writes to, if any.
type Logger struct {
	zerolog.Logger
	file *os.File
}

// New starts a builder writing to stderr at info level.
func New() *Builder {
	return &Builder{writer: os.Stderr, level: zerolog.InfoLevel}
}

// ToWriter sends output to w.
func (b *Builder) ToWriter(w io.Writer) *Builder {
	b.writer = w
	return b
}

// ToPath appends output to the file at path instead of the writer.
func (b *Builder) ToPath(path string) *Builder {
	b.path = path
	return b
}

// Level sets the minimum level.
func (b *Builder) Level(l zerolog.Level) *Builder {
	b.level = l
	return b
}

// LevelName sets the minimum level by name; unknown names keep the current
// level and are reported.
func (b *Builder) LevelName(name string) (*Builder, error) {
	if name == "" {
		return b, nil
	}
	l, err := zerolog.ParseLevel(name)
	if err != nil {
		return b, err
	}
	b.level = l
	return b, nil
}

// Make opens the log file if one was named and returns the logger.
func (b *Builder) Make() (*Logger, error) {
	out := &Logger{}
	w := b.writer
	if b.path != "" {
		f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, err
		}
		out.file = f
		w = zerolog.SyncWriter(f)
	}
	out.Logger = zerolog.New(w).Level(b.level).With().Timestamp().Logger()
	return out, nil
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
