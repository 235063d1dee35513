package logger_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nikbrunner/minitab/internal/logger"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minitab.log")

	log, err := logger.New(logger.Options{Level: "info", OutputPath: path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	log.With(logger.String("component", "test")).Info("hello", logger.Int("n", 3))
	log.Debug("hidden")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	for _, want := range []string{`"msg":"hello"`, `"component":"test"`, `"n":3`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in log output, got %s", want, out)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug entry written at info level")
	}
}

func TestNop(t *testing.T) {
	log := logger.Nop()
	log.Error("ignored", logger.Error(os.ErrNotExist))
	log.Warnf("ignored %d", 1)
}
