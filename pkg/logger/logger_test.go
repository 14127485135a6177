package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"pixivdl/pkg/config"
)

func newBufferLogger(buf *bytes.Buffer) *zerologLogger {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	zlog := zerolog.New(buf).Level(zerolog.DebugLevel)
	return &zerologLogger{
		logger: &zlog,
		fields: make(map[string]interface{}),
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{
			name: "info level",
			cfg:  &config.LoggingConfig{Level: "info"},
		},
		{
			name: "debug level without color",
			cfg:  &config.LoggingConfig{Level: "debug", NoColor: true},
		},
		{
			name:    "invalid log level",
			cfg:     &config.LoggingConfig{Level: "loud"},
			wantErr: true,
		},
		{
			name: "file output",
			cfg:  &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "pixivdl.log")},
		},
		{
			name: "json file output",
			cfg:  &config.LoggingConfig{Level: "warn", JSON: true, File: filepath.Join(t.TempDir(), "pixivdl.json")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && l == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"off", zerolog.Disabled, false},
		{"verbose", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if level != tt.expected {
				t.Errorf("parseLogLevel() = %v, want %v", level, tt.expected)
			}
		})
	}
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := newBufferLogger(&buf)

	child := parent.WithField("illust_id", uint64(1234))
	child.Info("child message")
	parent.Info("parent message")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"illust_id":1234`) {
		t.Errorf("child line missing field: %s", lines[0])
	}
	if strings.Contains(lines[1], "illust_id") {
		t.Errorf("parent line should not carry child field: %s", lines[1])
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	if l.WithError(nil) != Logger(l) {
		t.Error("WithError(nil) should return the same logger")
	}

	l.WithError(errors.New("permit pool closed")).Error("acquire failed")
	output := buf.String()
	if !strings.Contains(output, "acquire failed") || !strings.Contains(output, "permit pool closed") {
		t.Errorf("unexpected output: %s", output)
	}
}

func TestFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.InfoWithFields("typed fields", map[string]interface{}{
		"string":   "series",
		"int":      3,
		"uint64":   uint64(42),
		"bool":     true,
		"time":     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		"duration": 120 * time.Second,
		"strings":  []string{"a", "b"},
		"cause":    errors.New("boom"),
		"custom":   struct{ Name string }{Name: "x"},
	})

	output := buf.String()
	for _, want := range []string{`"string":"series"`, `"int":3`, `"uint64":42`, `"bool":true`, `"cause":"boom"`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output %s", want, output)
		}
	}
}

func TestFieldChaining(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.WithField("run_id", "abc").
		WithFields(map[string]interface{}{"source": "series", "items": 4}).
		Info("chained")

	output := buf.String()
	for _, want := range []string{`"run_id":"abc"`, `"source":"series"`, `"items":4`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %s in output %s", want, output)
		}
	}
}

func TestGlobalLogger(t *testing.T) {
	if err := Initialize(&config.LoggingConfig{Level: "error", NoColor: true}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger() == nil {
		t.Fatal("GetLogger() returned nil")
	}

	Debug("debug")
	Info("info")
	Warn("warn")
	WithField("k", "v").Info("field")
	WithFields(map[string]interface{}{"a": 1}).Info("fields")
	WithError(errors.New("e")).Debug("error")

	test := NewTestLogger()
	SetLogger(test)
	Info("captured")
	if !test.HasMessage("captured") {
		t.Error("SetLogger should replace the global logger")
	}
	SetLogger(NewNopLogger())
}

func TestHelpers(t *testing.T) {
	test := NewTestLogger()

	LogRequest(test, "GET", "https://www.pixiv.net/ajax/illust/1/pages", 200, time.Millisecond)
	LogRequest(test, "GET", "https://www.pixiv.net/ajax/illust/1/pages", 503, time.Millisecond)
	LogTransfer(test, "https://i.pximg.net/a.png", "/tmp/a.png", 1, nil)
	LogTransfer(test, "https://i.pximg.net/b.png", "/tmp/b.png", 3, errors.New("timeout"))
	LogDiscoveryProgress(test, "series", 2, 3)

	if !test.HasMessage("HTTP request completed") {
		t.Error("expected debug request log")
	}
	if len(test.GetMessagesByLevel("WARN")) != 1 {
		t.Error("expected one warning for the 503 response")
	}
	errs := test.GetMessagesByLevel("ERROR")
	if len(errs) != 1 || errs[0].Fields["tries"] != 3 {
		t.Errorf("unexpected error messages: %+v", errs)
	}
	if !test.HasMessage("discovery progress") {
		t.Error("expected discovery progress log")
	}
}
