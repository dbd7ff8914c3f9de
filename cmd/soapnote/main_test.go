package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/physiolab/soapnote/internal/config"
)

func TestParseRunFlagsAfterPositional(t *testing.T) {
	rf, err := parseRunFlags([]string{"session.wav", "--output", "myreport", "--verbose"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rf.audioPath != "session.wav" {
		t.Errorf("audio path = %q", rf.audioPath)
	}
	if rf.output != "myreport" {
		t.Errorf("output = %q", rf.output)
	}
	if !rf.verbose {
		t.Error("verbose not set")
	}
}

func TestParseRunFlagsBeforePositional(t *testing.T) {
	rf, err := parseRunFlags([]string{"--format", "md", "session.mp3"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rf.audioPath != "session.mp3" {
		t.Errorf("audio path = %q", rf.audioPath)
	}
	if rf.format != "md" {
		t.Errorf("format = %q", rf.format)
	}
}

func TestParseRunFlagsMixedSides(t *testing.T) {
	rf, err := parseRunFlags([]string{"--config", "c.yml", "session.m4a", "--output", "out"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rf.audioPath != "session.m4a" || rf.configPath != "c.yml" || rf.output != "out" {
		t.Errorf("unexpected flags: %+v", rf)
	}
}

func TestParseRunFlagsRejectsMissingPath(t *testing.T) {
	if _, err := parseRunFlags([]string{"--verbose"}); err == nil {
		t.Error("expected error for missing audio path")
	}
}

func TestParseRunFlagsRejectsExtraArgs(t *testing.T) {
	if _, err := parseRunFlags([]string{"a.wav", "b.wav"}); err == nil {
		t.Error("expected error for two audio paths")
	}
}

func TestRedactedErr(t *testing.T) {
	cause := errors.New("extraction rejected record for John Smith, call 5551234567")

	cfg := &config.Config{}
	cfg.Logging.RedactPHI = true
	got := redactedErr(cfg, cause).Error()
	if strings.Contains(got, "John Smith") || strings.Contains(got, "5551234567") {
		t.Errorf("PHI leaked through redaction: %q", got)
	}
	if !strings.Contains(got, "[NAME_REDACTED]") {
		t.Errorf("expected redaction marker, got %q", got)
	}

	cfg.Logging.RedactPHI = false
	if redactedErr(cfg, cause) != cause {
		t.Error("redaction must be a no-op when HIPAA mode is off")
	}
	if redactedErr(cfg, nil) != nil {
		t.Error("nil error must pass through")
	}
}
