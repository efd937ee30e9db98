package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestInitWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "client.log")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_TO_CONSOLE", "")
	t.Setenv("LOG_TO_FILE", "")
	t.Setenv("LOG_FILE", path)

	if err := InitFromEnv(ForTUI); err != nil {
		t.Fatalf("init: %v", err)
	}
	L().Debug("sync_fetch_start")
	_ = L().Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), `"msg":"sync_fetch_start"`) {
		t.Fatalf("log line missing: %s", raw)
	}
}

func TestInitWithEverythingOffIsSilent(t *testing.T) {
	t.Setenv("LOG_TO_CONSOLE", "false")
	t.Setenv("LOG_TO_FILE", "false")
	if err := InitFromEnv(ForCLI); err != nil {
		t.Fatalf("init: %v", err)
	}
	if L().Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("expected a no-op logger")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSettingsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("LOG_TO_CONSOLE", "")
	t.Setenv("LOG_TO_FILE", "")
	t.Setenv("LOG_FILE", "")
	t.Setenv("LOG_CALLER", "")

	s := SettingsFromEnv(ForTUI)
	if s.Console || s.File != ForTUI.File || s.Format != "legacy" || !s.Caller || s.Level != zapcore.InfoLevel {
		t.Fatalf("tui defaults = %+v", s)
	}

	t.Setenv("LOG_TO_CONSOLE", "1")
	t.Setenv("LOG_TO_FILE", "0")
	t.Setenv("LOG_FORMAT", "JSON")
	s = SettingsFromEnv(ForTUI)
	if !s.Console || s.File != "" || s.Format != "json" || s.Caller {
		t.Fatalf("overridden settings = %+v", s)
	}

	t.Setenv("LOG_FORMAT", "xml")
	if got := SettingsFromEnv(ForCLI).Format; got != "legacy" {
		t.Fatalf("unknown format fell back to %q", got)
	}
}
