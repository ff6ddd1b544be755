package main

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/pthm-cable/popsim/telemetry"
)

func TestPick(t *testing.T) {
	tests := []struct {
		flag, cfg, want string
	}{
		{"", "log.txt", "log.txt"},
		{"-", "log.txt", ""},
		{"run.log", "log.txt", "run.log"},
	}
	for _, tt := range tests {
		if got := pick(tt.flag, tt.cfg); got != tt.want {
			t.Errorf("pick(%q, %q) = %q, want %q", tt.flag, tt.cfg, got, tt.want)
		}
	}
}

func TestCloseOutputLogsError(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	om, err := telemetry.NewOutputManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	// The files are already closed, so the second close fails.
	closeOutput(om)
	if !strings.Contains(buf.String(), "failed to close telemetry output") {
		t.Errorf("close error not logged: %s", buf.String())
	}
}
