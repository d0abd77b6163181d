package main

import (
	"bytes"
	"context"
	"testing"
)

func TestParseArgsDefaults(t *testing.T) {
	opts, err := parseArgs(nil)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if opts.configPath != "" {
		t.Errorf("configPath = %q, want empty", opts.configPath)
	}
	if opts.httpBind != "" {
		t.Errorf("httpBind = %q, want empty", opts.httpBind)
	}
}

func TestParseArgsOverrides(t *testing.T) {
	opts, err := parseArgs([]string{"-config", "run.yaml", "-metrics-addr", ":9109"})
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if opts.configPath != "run.yaml" {
		t.Errorf("configPath = %q, want run.yaml", opts.configPath)
	}
	if opts.httpBind != ":9109" {
		t.Errorf("httpBind = %q, want :9109", opts.httpBind)
	}
}

func TestParseArgsRejectsUnknownFlag(t *testing.T) {
	if _, err := parseArgs([]string{"-bogus"}); err == nil {
		t.Error("parseArgs with unknown flag: want error, got nil")
	}
}

func TestRunWithMockSourceSucceeds(t *testing.T) {
	var stderr bytes.Buffer
	code := run(context.Background(), nil, &stderr)
	if code != exitSuccess {
		t.Errorf("run() = %d, want exitSuccess; stderr=%s", code, stderr.String())
	}
}

func TestRunWithBadConfigPathFailsToParseNothing(t *testing.T) {
	// A missing config file is treated as "use defaults", not an error --
	// loadConfig only surfaces a parse error for a file that exists but
	// fails to decode.
	var stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", "/nonexistent/path.yaml"}, &stderr)
	if code != exitSuccess {
		t.Errorf("run() with a missing config path = %d, want exitSuccess; stderr=%s", code, stderr.String())
	}
}
