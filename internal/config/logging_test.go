package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestSetupLoggerWithWritersFansOut(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("transcript saved", "conversation", "alpha")

	if !strings.Contains(stderr.String(), "transcript saved") {
		t.Errorf("stderr output missing message: %q", stderr.String())
	}
	if !strings.Contains(stderr.String(), "conversation=alpha") {
		t.Errorf("stderr output missing attribute: %q", stderr.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(file.Bytes(), &entry); err != nil {
		t.Fatalf("file output is not JSON: %v (%q)", err, file.String())
	}
	if entry["msg"] != "transcript saved" {
		t.Errorf("file entry msg = %v, want %q", entry["msg"], "transcript saved")
	}
	if entry["conversation"] != "alpha" {
		t.Errorf("file entry conversation = %v, want %q", entry["conversation"], "alpha")
	}
}

func TestSetupLoggerWithWritersRespectsLevel(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelWarn)

	logger.Debug("ignored")
	logger.Info("also ignored")

	if stderr.Len() != 0 {
		t.Errorf("stderr got output below level: %q", stderr.String())
	}
	if file.Len() != 0 {
		t.Errorf("file got output below level: %q", file.String())
	}
}
