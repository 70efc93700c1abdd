package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestBuilderWritesJSONAtLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New().ToWriter(&buf).Level(zerolog.WarnLevel).Make()
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	l.Info().Msg("dropped")
	l.Warn().Str("op", "add_dsm").Msg("rolled back")
	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info should be filtered: %s", out)
	}
	if !strings.Contains(out, `"op":"add_dsm"`) || !strings.Contains(out, `"time"`) {
		t.Fatalf("unexpected output %s", out)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestBuilderAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configedit.log")
	b, err := New().ToPath(path).LevelName("debug")
	if err != nil {
		t.Fatalf("level: %v", err)
	}
	l, err := b.Make()
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	l.Debug().Msg("hello")
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("expected message in file, got %s", data)
	}
	if _, err := New().LevelName("loud"); err == nil {
		t.Fatalf("expected unknown level error")
	}
}
