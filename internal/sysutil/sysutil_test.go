package sysutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetLogLevel_AllVariants(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"  DeBuG  ", zerolog.DebugLevel}, // case + trim
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel}, // empty -> info
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel}, // alias
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"unknown", zerolog.InfoLevel}, // default
	}

	for _, tc := range cases {
		SetLogLevel(tc.in)
		if got := zerolog.GlobalLevel(); got != tc.want {
			t.Fatalf("SetLogLevel(%q) -> %v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestConfigureLogging_JSONFields(t *testing.T) {
	origLevel, origLogger := zerolog.GlobalLevel(), log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(origLevel)
		log.Logger = origLogger
	})

	var buf bytes.Buffer
	ConfigureLogging(LogOptions{Level: "warn", Service: "go-intake-bot", Version: "v1.0.0", Out: &buf})

	log.Info().Msg("dropped")
	log.Warn().Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info line should be filtered at warn: %s", out)
	}
	for _, want := range []string{`"message":"kept"`, `"service":"go-intake-bot"`, `"version":"v1.0.0"`, `"time":`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %s", want, out)
		}
	}
}

func TestConfigureLogging_Pretty(t *testing.T) {
	origLevel, origLogger := zerolog.GlobalLevel(), log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(origLevel)
		log.Logger = origLogger
	})

	var buf bytes.Buffer
	ConfigureLogging(LogOptions{Pretty: true, Out: &buf})
	log.Info().Msg("hello")

	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") || !strings.Contains(buf.String(), "hello") {
		t.Fatalf("expected console output, got %q", buf.String())
	}
}

func TestLoadEnvFiles_SkipsMissing_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, ".env")
	if err := os.WriteFile(f, []byte("INTAKE_TEST_A=from-file\nINTAKE_TEST_B=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INTAKE_TEST_A", "from-env")
	t.Setenv("INTAKE_TEST_B", "")
	os.Unsetenv("INTAKE_TEST_B")
	t.Cleanup(func() { os.Unsetenv("INTAKE_TEST_B") })

	loaded, err := LoadEnvFiles(filepath.Join(dir, "missing.env"), "", f)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(loaded) != 1 || loaded[0] != f {
		t.Fatalf("loaded=%v", loaded)
	}
	if got := os.Getenv("INTAKE_TEST_A"); got != "from-env" {
		t.Fatalf("existing var overridden: %q", got)
	}
	if got := os.Getenv("INTAKE_TEST_B"); got != "from-file" {
		t.Fatalf("file var not loaded: %q", got)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty(); got != "" {
		t.Fatalf("FirstNonEmpty() = %q; want \"\"", got)
	}
	if got := FirstNonEmpty(" ", "\t", "\n"); got != "" {
		t.Fatalf("FirstNonEmpty(blanks) = %q; want \"\"", got)
	}
	if got := FirstNonEmpty("", "  ", "v2", "v3"); got != "v2" {
		t.Fatalf("FirstNonEmpty = %q; want v2", got)
	}
}
